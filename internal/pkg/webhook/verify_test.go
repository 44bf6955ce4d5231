package webhook

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerifySecret(t *testing.T) {
	tests := []struct {
		name       string
		provided   string
		configured string
		want       bool
	}{
		{name: "match", provided: "s3cr3t-token", configured: "s3cr3t-token", want: true},
		{name: "same length, last char differs", provided: "s3cr3t-tokeN", configured: "s3cr3t-token", want: false},
		{name: "same length, first char differs", provided: "S3cr3t-token", configured: "s3cr3t-token", want: false},
		{name: "prefix", provided: "s3cr3t", configured: "s3cr3t-token", want: false},
		{name: "empty provided", provided: "", configured: "s3cr3t-token", want: false},
		{name: "empty configured", provided: "anything", configured: "", want: false},
		{name: "both empty", provided: "", configured: "", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, VerifySecret(tt.provided, tt.configured))
		})
	}
}
