package auth

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

const (
	credentialDir      = ".media-map"
	credentialFile     = "credentials"
	credentialFileGPG  = "credentials.gpg"
	passphraseFileName = ".gpg-passphrase"
)

// loadCredentials reads the encrypted credentials file, or the plain one
// when no encrypted file exists.
func (r *Resolver) loadCredentials() (map[string]string, error) {
	dir, err := r.credentialDir()
	if err != nil {
		return nil, err
	}

	gpgPath := filepath.Join(dir, credentialFileGPG)
	if _, err := os.Stat(gpgPath); err == nil {
		data, err := r.decrypt(gpgPath)
		if err != nil {
			return nil, err
		}
		return parseCredentials(data)
	}

	plainPath := filepath.Join(dir, credentialFile)
	fi, err := os.Stat(plainPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("credentials file not found in %s", dir)
		}
		return nil, fmt.Errorf("failed to stat credentials file: %w", err)
	}
	if mode := fi.Mode().Perm(); mode&0o077 != 0 {
		log.Warn().
			Str("file", plainPath).
			Str("permissions", fmt.Sprintf("%04o", mode)).
			Msg("Credentials file has insecure permissions (should be 0600); skipping")
		return nil, fmt.Errorf("credentials file %s is readable by others", plainPath)
	}

	data, err := os.ReadFile(plainPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}
	return parseCredentials(data)
}

func parseCredentials(data []byte) (map[string]string, error) {
	creds, err := godotenv.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse credentials: %w", err)
	}
	return creds, nil
}

func (r *Resolver) credentialDir() (string, error) {
	if r.opts.CredentialDir != "" {
		return r.opts.CredentialDir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, credentialDir), nil
}

// decryptGPG decrypts a file with the gpg binary. A passphrase file next
// to the executable or in the working directory enables non-interactive
// use; it must be owner-only.
func decryptGPG(path string) ([]byte, error) {
	log.Debug().Str("file", path).Msg("Decrypting GPG credentials")

	args := []string{"--decrypt", "--quiet"}
	if passphrasePath, ok := findPassphraseFile(); ok {
		args = append(args, "--pinentry-mode", "loopback", "--passphrase-file", passphrasePath)
	}
	args = append(args, path)

	output, err := exec.Command("gpg", args...).Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return nil, fmt.Errorf("GPG decryption failed: %s", string(exitErr.Stderr))
		}
		return nil, fmt.Errorf("GPG decryption failed: %w", err)
	}
	return output, nil
}

func findPassphraseFile() (string, bool) {
	var dirs []string
	if exe, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Dir(exe))
	}
	if cwd, err := os.Getwd(); err == nil {
		dirs = append(dirs, cwd)
	}

	for _, dir := range dirs {
		p := filepath.Join(dir, passphraseFileName)
		fi, err := os.Stat(p)
		if err != nil {
			continue
		}
		if mode := fi.Mode().Perm(); mode&0o077 != 0 {
			log.Warn().
				Str("passphrase_file", p).
				Str("permissions", fmt.Sprintf("%04o", mode)).
				Msg("Passphrase file has insecure permissions (should be 0600); skipping")
			continue
		}
		log.Debug().Str("passphrase_file", p).Msg("Using passphrase file for GPG decryption")
		return p, true
	}
	return "", false
}
