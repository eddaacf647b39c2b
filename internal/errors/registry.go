package errors

import "sort"

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category   Category
	Message    string
	Detail     string
	Suggestion string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Config Errors (E100-E119)
	// ============================================

	"E100": {
		Category: CategoryConfig,
		Message:  "Config file not found",
		Detail:   "No draftform.json or draftform.yaml was found in the given directory.",
	},
	"E101": {
		Category: CategoryConfig,
		Message:  "Invalid config file",
		Detail:   "The config file could not be parsed.",
	},
	"E102": {
		Category: CategoryConfig,
		Message:  "Invalid config value",
		Detail:   "A config value is out of range or malformed.",
	},
	"E103": {
		Category:   CategoryConfig,
		Message:    "Unknown drafts backend",
		Detail:     "drafts.backend selects where shared drafts are kept.",
		Suggestion: `Use "memory", "sqlite" or "s3".`,
	},

	// ============================================
	// Store Errors (E120-E139)
	// ============================================

	"E120": {
		Category: CategoryStore,
		Message:  "Draft store unavailable",
		Detail:   "The durable draft backend could not be opened.",
	},
	"E121": {
		Category: CategoryStore,
		Message:  "Draft table setup failed",
		Detail:   "The drafts table could not be created.",
	},

	// ============================================
	// Submit Errors (E140-E159)
	// ============================================

	"E140": {
		Category: CategorySubmit,
		Message:  "Draft failed validation",
		Detail:   "At least one field of the draft does not satisfy the screen's schema.",
	},
	"E141": {
		Category: CategorySubmit,
		Message:  "Draft file unreadable",
		Detail:   "The draft must be a JSON object of field values.",
	},

	// ============================================
	// API Errors (E160-E179)
	// ============================================

	"E160": {
		Category:   CategoryAPI,
		Message:    "API base URL missing",
		Detail:     "Submits need the base URL of the entity creation API.",
		Suggestion: "Set api.baseURL in the config file or DRAFTFORM_API_URL.",
	},

	// ============================================
	// CLI Errors (E180-E199)
	// ============================================

	"E180": {
		Category: CategoryCLI,
		Message:  "Server failed",
		Detail:   "The admin server stopped with an error.",
	},
	"E181": {
		Category: CategoryCLI,
		Message:  "Shutdown timed out",
		Detail:   "Open requests did not finish before the shutdown deadline.",
	},
}

// GetAllCodes returns all registered error codes, sorted.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Register adds a new error template to the registry.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}
