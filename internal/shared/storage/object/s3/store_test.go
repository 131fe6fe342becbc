package s3

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

func TestApplyPrefix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		prefix string
		key    string
		want   string
	}{
		{name: "no prefix", prefix: "", key: "sources/abc.pdf", want: "sources/abc.pdf"},
		{name: "simple prefix", prefix: "compliance", key: "sources/abc.pdf", want: "compliance/sources/abc.pdf"},
		{name: "prefix trailing slash", prefix: "compliance/", key: "sources/abc.pdf", want: "compliance/sources/abc.pdf"},
		{name: "prefix and key slashes", prefix: "/compliance/", key: "/sources/abc.pdf", want: "compliance/sources/abc.pdf"},
		{name: "empty key", prefix: "compliance", key: "", want: "compliance"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := applyPrefix(tt.prefix, tt.key); got != tt.want {
				t.Fatalf("applyPrefix(%q, %q) = %q, want %q", tt.prefix, tt.key, got, tt.want)
			}
		})
	}
}

func TestApplyEncryption(t *testing.T) {
	input := &awss3.PutObjectInput{}
	(&Store{}).applyEncryption(input)
	if input.ServerSideEncryption != s3types.ServerSideEncryptionAes256 {
		t.Fatalf("expected AES256 without a KMS key, got %q", input.ServerSideEncryption)
	}

	input = &awss3.PutObjectInput{}
	(&Store{kmsKeyID: "key-1"}).applyEncryption(input)
	if input.ServerSideEncryption != s3types.ServerSideEncryptionAwsKms {
		t.Fatalf("expected aws:kms, got %q", input.ServerSideEncryption)
	}
	if aws.ToString(input.SSEKMSKeyId) != "key-1" {
		t.Fatalf("expected kms key id to be set")
	}
}

func TestContentTypeOrDefault(t *testing.T) {
	if got := contentTypeOrDefault(" "); got != "application/octet-stream" {
		t.Fatalf("unexpected default %q", got)
	}
	if got := contentTypeOrDefault("application/pdf"); got != "application/pdf" {
		t.Fatalf("unexpected content type %q", got)
	}
}

func TestNewRequiresBucket(t *testing.T) {
	if _, err := New(t.Context(), "us-east-1", "", "", ""); err == nil {
		t.Fatalf("expected missing bucket error")
	}
}
