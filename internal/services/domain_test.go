package services

import (
	"context"
	"net"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

type fakeResolver struct {
	mx     []*net.MX
	mxErr  error
	hosts  []string
	hstErr error
}

func (r fakeResolver) LookupMX(context.Context, string) ([]*net.MX, error) { return r.mx, r.mxErr }
func (r fakeResolver) LookupHost(context.Context, string) ([]string, error) {
	return r.hosts, r.hstErr
}

func TestHasMailRecords(t *testing.T) {
	t.Parallel()

	notFound := &net.DNSError{Err: "no such host", Name: "x", IsNotFound: true}

	tests := []struct {
		name     string
		resolver fakeResolver
		want     bool
		wantErr  bool
	}{
		{"mx present", fakeResolver{mx: []*net.MX{{Host: "mx.example.com.", Pref: 10}}}, true, false},
		{"null mx", fakeResolver{mx: []*net.MX{{Host: "."}}}, false, false},
		{"implicit mx", fakeResolver{mxErr: notFound, hosts: []string{"192.0.2.1"}}, true, false},
		{"nothing", fakeResolver{mxErr: notFound, hstErr: notFound}, false, false},
		{"mx servfail", fakeResolver{mxErr: &net.DNSError{Err: "server misbehaving", IsTemporary: true}}, false, true},
		{"host timeout", fakeResolver{mxErr: notFound, hstErr: errors.New("i/o timeout")}, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := NewDomainService(tt.resolver).HasMailRecords(context.Background(), "example.com")
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}
