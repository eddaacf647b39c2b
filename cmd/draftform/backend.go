package main

import (
	"context"
	"database/sql"
	"log/slog"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	_ "modernc.org/sqlite"

	"github.com/vango-dev/draftform/internal/config"
	"github.com/vango-dev/draftform/internal/errors"
	"github.com/vango-dev/draftform/pkg/persist"
)

// openBackend opens the durable drafts backend. The returned func releases
// resources the store does not own, such as the database handle.
func openBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (persist.Store, func() error, error) {
	nop := func() error { return nil }

	switch cfg.Drafts.Backend {
	case config.BackendSQLite:
		db, err := sql.Open("sqlite", cfg.SQLitePath())
		if err != nil {
			return nil, nil, errors.New("E120").Wrap(err)
		}
		// SQLite allows a single writer.
		db.SetMaxOpenConns(1)

		opts := []persist.SQLStoreOption{
			persist.WithSQLDialect(persist.DialectSQLite),
			persist.WithSQLLogger(logger),
		}
		if cfg.Drafts.Table != "" {
			opts = append(opts, persist.WithSQLTableName(cfg.Drafts.Table))
		}
		store := persist.NewSQLStore(db, opts...)
		if err := store.CreateTable(ctx); err != nil {
			store.Close()
			db.Close()
			return nil, nil, errors.New("E121").Wrap(err)
		}
		logger.Info("drafts backend ready", "backend", "sqlite", "path", cfg.SQLitePath())
		return store, db.Close, nil

	case config.BackendS3:
		s3cfg := cfg.Drafts.S3
		client := s3.New(s3.Options{
			Region:       s3cfg.Region,
			Credentials:  aws.NewCredentialsCache(envCredentials{}),
			UsePathStyle: s3cfg.PathStyle,
			BaseEndpoint: optional(s3cfg.Endpoint),
		})
		var opts []persist.S3StoreOption
		if s3cfg.Prefix != "" {
			opts = append(opts, persist.WithS3Prefix(s3cfg.Prefix))
		}
		logger.Info("drafts backend ready", "backend", "s3", "bucket", s3cfg.Bucket)
		return persist.NewS3Store(client, s3cfg.Bucket, opts...), nop, nil

	default:
		logger.Info("drafts backend ready", "backend", "memory")
		return persist.NewMemoryStore(), nop, nil
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return aws.String(s)
}

// envCredentials reads static credentials from the standard AWS variables.
type envCredentials struct{}

func (envCredentials) Retrieve(context.Context) (aws.Credentials, error) {
	id, secret := os.Getenv("AWS_ACCESS_KEY_ID"), os.Getenv("AWS_SECRET_ACCESS_KEY")
	if id == "" || secret == "" {
		return aws.Credentials{}, errors.New("E120").
			WithDetail("AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY must be set for the s3 backend")
	}
	return aws.Credentials{
		AccessKeyID:     id,
		SecretAccessKey: secret,
		SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
		Source:          "environment",
	}, nil
}
