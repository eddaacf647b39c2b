package users

import (
	"strings"

	"github.com/vango-dev/draftform/pkg/record"
)

// Summary is a typed view of the fields the screen reads. Everything else
// stays in Extra untouched.
type Summary struct {
	UserIdx        string
	Name           string
	UserID         string
	PhoneNumber    string
	DeptIdx        int
	DeptSelected   bool
	PasswordUpdate string
	DealerCd       string
	DealerNm       string
	Deleted        bool
	Out            bool

	Extra record.Draft
}

var summaryFields = []string{
	FieldUserIdx, FieldName, FieldUserID, FieldPhoneNumber, FieldDeptIdx,
	FieldPasswordUpdate, FieldDealerCd, FieldDealerNm, FieldDelYn, FieldOutYn,
}

// SummaryOf builds a Summary from a draft.
func SummaryOf(d record.Draft) Summary {
	s := Summary{
		UserIdx:        d.String(FieldUserIdx),
		Name:           d.String(FieldName),
		UserID:         d.String(FieldUserID),
		PhoneNumber:    d.String(FieldPhoneNumber),
		PasswordUpdate: d.String(FieldPasswordUpdate),
		DealerCd:       d.String(FieldDealerCd),
		DealerNm:       d.String(FieldDealerNm),
		Deleted:        d.String(FieldDelYn) == "Y",
		Out:            d.String(FieldOutYn) == "Y",
		Extra:          d.Without(summaryFields...),
	}
	if n, ok := d.Number(FieldDeptIdx); ok {
		s.DeptIdx = int(n)
		s.DeptSelected = n != 0
	}
	return s
}

// Header is the card title: the record id followed by the name.
func (s Summary) Header() string {
	return strings.TrimSpace(s.UserIdx + " " + s.Name)
}
