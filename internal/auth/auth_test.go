package auth

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
)

type fakeSSM struct {
	params map[string]string
	err    error
	asked  []string
}

func (f *fakeSSM) GetParameter(ctx context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	name := aws.ToString(in.Name)
	f.asked = append(f.asked, name)
	if !aws.ToBool(in.WithDecryption) {
		return nil, errors.New("expected WithDecryption")
	}
	if f.err != nil {
		return nil, f.err
	}
	v, ok := f.params[name]
	if !ok {
		return nil, &types.ParameterNotFound{}
	}
	return &ssm.GetParameterOutput{Parameter: &types.Parameter{Value: aws.String(v)}}, nil
}

func newTestResolver(t *testing.T, env map[string]string, opts Options) *Resolver {
	t.Helper()
	if opts.CredentialDir == "" {
		opts.CredentialDir = t.TempDir()
	}
	r := NewResolver(opts)
	r.getenv = func(k string) string { return env[k] }
	r.decrypt = func(string) ([]byte, error) { return nil, errors.New("gpg unavailable") }
	return r
}

func writeCredentials(t *testing.T, dir, name, content string, perm os.FileMode) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), perm); err != nil {
		t.Fatal(err)
	}
}

func TestGetFromEnv(t *testing.T) {
	r := newTestResolver(t, map[string]string{"DROPBOX_ACCESS_TOKEN": "env-token"}, Options{})

	got, err := r.Get(context.Background(), "DROPBOX_ACCESS_TOKEN")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "env-token" {
		t.Errorf("Get() = %q, want %q", got, "env-token")
	}
}

func TestGetFromPlainCredentials(t *testing.T) {
	dir := t.TempDir()
	writeCredentials(t, dir, credentialFile, "CLOUDINARY_API_SECRET=shh\n# comment\nCLOUDINARY_API_KEY=\"123\"\n", 0o600)

	r := newTestResolver(t, nil, Options{CredentialDir: dir})
	for name, want := range map[string]string{"CLOUDINARY_API_SECRET": "shh", "CLOUDINARY_API_KEY": "123"} {
		got, err := r.Get(context.Background(), name)
		if err != nil {
			t.Fatalf("Get(%q) error: %v", name, err)
		}
		if got != want {
			t.Errorf("Get(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestPlainCredentialsInsecurePermissions(t *testing.T) {
	dir := t.TempDir()
	writeCredentials(t, dir, credentialFile, "DATABASE_URL=postgres://x\n", 0o644)

	r := newTestResolver(t, nil, Options{CredentialDir: dir})
	if _, err := r.Get(context.Background(), "DATABASE_URL"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestGetFromEncryptedCredentials(t *testing.T) {
	dir := t.TempDir()
	writeCredentials(t, dir, credentialFileGPG, "ciphertext", 0o600)
	writeCredentials(t, dir, credentialFile, "DATABASE_URL=plain\n", 0o600)

	r := newTestResolver(t, nil, Options{CredentialDir: dir})
	var decrypted string
	r.decrypt = func(path string) ([]byte, error) {
		decrypted = path
		return []byte("DATABASE_URL=sqlite:media.db\n"), nil
	}

	got, err := r.Get(context.Background(), "DATABASE_URL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "sqlite:media.db" {
		t.Errorf("Get() = %q, want the encrypted file's value", got)
	}
	if decrypted != filepath.Join(dir, credentialFileGPG) {
		t.Errorf("decrypted %q", decrypted)
	}
}

func TestGetFromSSM(t *testing.T) {
	fake := &fakeSSM{params: map[string]string{"/media-map/prod/DROPBOX_ACCESS_TOKEN": "ssm-token"}}
	r := newTestResolver(t, nil, Options{SSM: fake, SSMPrefix: "/media-map/prod"})

	got, err := r.Get(context.Background(), "DROPBOX_ACCESS_TOKEN")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ssm-token" {
		t.Errorf("Get() = %q, want %q", got, "ssm-token")
	}

	if _, err := r.Get(context.Background(), "CLOUDINARY_API_KEY"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() of a missing parameter error = %v, want ErrNotFound", err)
	}
}

func TestGetSSMFailure(t *testing.T) {
	fake := &fakeSSM{err: errors.New("AccessDenied")}
	r := newTestResolver(t, nil, Options{SSM: fake, SSMPrefix: "/media-map"})

	_, err := r.Get(context.Background(), "DATABASE_URL")
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want a transport error", err)
	}
}

func TestGetNoSource(t *testing.T) {
	r := newTestResolver(t, nil, Options{})
	if _, err := r.Get(context.Background(), "DROPBOX_ACCESS_TOKEN"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestFill(t *testing.T) {
	r := newTestResolver(t, map[string]string{"A": "from-env"}, Options{})

	a, b, c := "", "preset", ""
	err := r.Fill(context.Background(), map[string]*string{"A": &a, "B": &b, "C": &c})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Fill() error = %v, want ErrNotFound for C", err)
	}
	if a != "from-env" || b != "preset" || c != "" {
		t.Errorf("Fill() got a=%q b=%q c=%q", a, b, c)
	}
}
