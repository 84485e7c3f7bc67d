package s3util

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type fakeS3 struct {
	put     *s3.PutObjectInput
	body    []byte
	deleted []string
	err     error
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.put = in
	f.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{VersionId: aws.String("v7")}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.deleted = append(f.deleted, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestPutBytes(t *testing.T) {
	fake := &fakeS3{}
	version, err := PutBytes(context.Background(), fake, "bucket", "thumbnails/a.png", "image/png", []byte("png"))
	if err != nil {
		t.Fatalf("PutBytes() error: %v", err)
	}
	if version != "v7" {
		t.Errorf("version = %q, want v7", version)
	}
	if aws.ToString(fake.put.Key) != "thumbnails/a.png" || aws.ToString(fake.put.ContentType) != "image/png" {
		t.Errorf("put input = %+v", fake.put)
	}
	if aws.ToString(fake.put.Tagging) != "Project=media-map" {
		t.Errorf("Tagging = %q", aws.ToString(fake.put.Tagging))
	}
	if string(fake.body) != "png" {
		t.Errorf("body = %q", fake.body)
	}
}

func TestPutBytesError(t *testing.T) {
	boom := errors.New("boom")
	_, err := PutBytes(context.Background(), &fakeS3{err: boom}, "b", "k", "image/png", nil)
	if !errors.Is(err, boom) {
		t.Errorf("PutBytes() error = %v, want wrapped boom", err)
	}
}

func TestDeleteObject(t *testing.T) {
	fake := &fakeS3{}
	if err := DeleteObject(context.Background(), fake, "b", "thumbnails/a.png"); err != nil {
		t.Fatalf("DeleteObject() error: %v", err)
	}
	if len(fake.deleted) != 1 || fake.deleted[0] != "thumbnails/a.png" {
		t.Errorf("deleted = %v", fake.deleted)
	}
}
