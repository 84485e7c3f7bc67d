// Package auth resolves the pipeline's secrets (Dropbox token, Cloudinary
// keys, database URL).
//
// Priority order for every secret:
//  1. the environment variable of the same name
//  2. the credentials file at ~/.media-map/credentials.gpg (GPG-encrypted
//     dotenv) or ~/.media-map/credentials (plain dotenv, owner-only)
//  3. AWS SSM Parameter Store at <SSM_PARAM_PREFIX>/<NAME>, decrypted
package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog/log"
)

// ErrNotFound is returned when no source holds a secret.
var ErrNotFound = errors.New("secret not found")

// Options configures a Resolver.
type Options struct {
	// CredentialDir overrides ~/.media-map.
	CredentialDir string
	// SSM is optional; without it the parameter store is not consulted.
	SSM       ssmAPI
	SSMPrefix string
}

// Resolver looks secrets up in priority order. The credentials file is
// read at most once.
type Resolver struct {
	opts Options

	credOnce sync.Once
	creds    map[string]string
	credErr  error

	getenv  func(string) string
	decrypt func(path string) ([]byte, error)
}

// NewResolver creates a Resolver.
func NewResolver(opts Options) *Resolver {
	return &Resolver{
		opts:    opts,
		getenv:  os.Getenv,
		decrypt: decryptGPG,
	}
}

// Get returns the secret called name.
func (r *Resolver) Get(ctx context.Context, name string) (string, error) {
	if v := r.getenv(name); v != "" {
		log.Debug().Str("secret", name).Msg("Using secret from environment variable")
		return v, nil
	}

	if v := r.fromCredentials(name); v != "" {
		log.Debug().Str("secret", name).Msg("Using secret from credentials file")
		return v, nil
	}

	if r.opts.SSM != nil && r.opts.SSMPrefix != "" {
		v, err := getParameter(ctx, r.opts.SSM, r.opts.SSMPrefix, name)
		if err != nil {
			return "", err
		}
		if v != "" {
			return v, nil
		}
	}

	return "", fmt.Errorf("%w: %s. Set it in the environment, the credentials file or SSM", ErrNotFound, name)
}

// Fill resolves every named secret whose destination is still empty.
func (r *Resolver) Fill(ctx context.Context, secrets map[string]*string) error {
	var errs []error
	for name, dst := range secrets {
		if *dst != "" {
			continue
		}
		v, err := r.Get(ctx, name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		*dst = v
	}
	return errors.Join(errs...)
}

func (r *Resolver) fromCredentials(name string) string {
	r.credOnce.Do(func() {
		r.creds, r.credErr = r.loadCredentials()
		if r.credErr != nil {
			log.Debug().Err(r.credErr).Msg("Credentials file not used")
		}
	})
	return r.creds[name]
}
