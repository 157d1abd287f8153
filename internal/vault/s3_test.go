package vault

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type fakeS3 struct {
	objects   map[string]map[string]string // key -> metadata
	headErr   error
	bucketErr error
	uploads   []*s3.PutObjectInput
	bodies    []string
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string]map[string]string)}
}

func (f *fakeS3) HeadObject(ctx context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if f.headErr != nil {
		return nil, f.headErr
	}
	md, ok := f.objects[*in.Key]
	if !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{Metadata: md}, nil
}

func (f *fakeS3) HeadBucket(ctx context.Context, in *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	return &s3.HeadBucketOutput{}, f.bucketErr
}

func (f *fakeS3) Upload(ctx context.Context, in *s3.PutObjectInput, _ ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.uploads = append(f.uploads, in)
	f.bodies = append(f.bodies, string(body))
	f.objects[*in.Key] = in.Metadata
	return &manager.UploadOutput{}, nil
}

func TestS3Vault_PutAsset(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	v := NewS3Vault("cdn", "assets", "/site/", fake, fake)

	uploaded, err := v.PutAsset(ctx, "events/1-a/gallery/p.webp", strings.NewReader("img"), 3, "sum1")
	if err != nil {
		t.Fatalf("PutAsset() error = %v", err)
	}
	if !uploaded {
		t.Error("first PutAsset() = false, want true")
	}
	if len(fake.uploads) != 1 {
		t.Fatalf("uploads = %d, want 1", len(fake.uploads))
	}
	in := fake.uploads[0]
	if *in.Bucket != "assets" || *in.Key != "site/events/1-a/gallery/p.webp" {
		t.Errorf("uploaded to %s/%s", *in.Bucket, *in.Key)
	}
	if in.Metadata["sha256"] != "sum1" {
		t.Errorf("metadata = %v", in.Metadata)
	}
	if in.ContentType == nil || *in.ContentType != "image/webp" {
		t.Errorf("ContentType = %v", in.ContentType)
	}
	if fake.bodies[0] != "img" {
		t.Errorf("body = %q", fake.bodies[0])
	}

	uploaded, err = v.PutAsset(ctx, "events/1-a/gallery/p.webp", strings.NewReader("img"), 3, "sum1")
	if err != nil {
		t.Fatalf("second PutAsset() error = %v", err)
	}
	if uploaded || len(fake.uploads) != 1 {
		t.Errorf("unchanged asset uploaded again (uploaded=%v, uploads=%d)", uploaded, len(fake.uploads))
	}

	uploaded, err = v.PutAsset(ctx, "events/1-a/gallery/p.webp", strings.NewReader("img2"), 4, "sum2")
	if err != nil {
		t.Fatalf("third PutAsset() error = %v", err)
	}
	if !uploaded || len(fake.uploads) != 2 {
		t.Errorf("changed asset not uploaded (uploaded=%v, uploads=%d)", uploaded, len(fake.uploads))
	}
}

func TestS3Vault_HeadError(t *testing.T) {
	fake := newFakeS3()
	fake.headErr = errors.New("access denied")
	v := NewS3Vault("cdn", "assets", "", fake, fake)

	if _, err := v.PutAsset(context.Background(), "a.jpg", strings.NewReader("x"), 1, "s"); err == nil {
		t.Error("PutAsset() expected error when HeadObject fails")
	}
	if len(fake.uploads) != 0 {
		t.Error("uploaded despite HeadObject failure")
	}
}

func TestS3Vault_ValidateSetup(t *testing.T) {
	fake := newFakeS3()
	v := NewS3Vault("cdn", "assets", "", fake, fake)
	if err := v.ValidateSetup(context.Background()); err != nil {
		t.Errorf("ValidateSetup() error = %v", err)
	}

	fake.bucketErr = errors.New("no such bucket")
	if err := v.ValidateSetup(context.Background()); err == nil {
		t.Error("ValidateSetup() expected error")
	}
}
