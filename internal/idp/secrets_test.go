package idp

import (
	"testing"
	"time"

	"github.com/openkcm/common-sdk/pkg/commoncfg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourceRefSecrets(t *testing.T) {
	tests := []struct {
		name    string
		ref     commoncfg.SourceRef
		want    string
		wantErr bool
	}{
		{
			name: "embedded value",
			ref:  commoncfg.SourceRef{Source: "embedded", Value: "s3cret"},
			want: "s3cret",
		},
		{
			name:    "unreadable source",
			ref:     commoncfg.SourceRef{Source: "file", File: commoncfg.CredentialFile{Path: "/nonexistent/file"}},
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			secret, err := NewSourceRefSecrets(tc.ref).ClientSecret(t.Context())
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, secret)
		})
	}
}

func TestCachedSecrets(t *testing.T) {
	inner := &staticSecrets{secret: "s3cret"}
	cached := NewCachedSecrets(inner, time.Minute)

	for range 3 {
		secret, err := cached.ClientSecret(t.Context())
		require.NoError(t, err)
		assert.Equal(t, "s3cret", secret)
	}

	assert.Equal(t, 1, inner.calls)
}
