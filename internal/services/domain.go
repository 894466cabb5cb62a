package services

import (
	"context"
	"net"
	"time"

	"github.com/pkg/errors"
)

type Resolver interface {
	LookupMX(ctx context.Context, name string) ([]*net.MX, error)
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// DomainService checks whether an email domain can receive mail at all.
type DomainService struct {
	resolver Resolver
	timeout  time.Duration
}

func NewDomainService(resolver Resolver) *DomainService {
	if resolver == nil {
		resolver = &net.Resolver{}
	}
	return &DomainService{resolver: resolver, timeout: 3 * time.Second}
}

// HasMailRecords reports whether domain publishes MX records, falling back to
// an address lookup (RFC 5321 implicit MX). Not-found answers are (false, nil);
// any other resolver failure is returned as an error.
func (s *DomainService) HasMailRecords(ctx context.Context, domain string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	mx, err := s.resolver.LookupMX(ctx, domain)
	if err == nil && len(mx) > 0 {
		// A single "." target is a null MX: the domain accepts no mail.
		if len(mx) == 1 && (mx[0].Host == "." || mx[0].Host == "") {
			return false, nil
		}
		return true, nil
	}
	if err != nil && !isNotFound(err) {
		return false, errors.WithMessage(err, "lookup mx")
	}

	hosts, err := s.resolver.LookupHost(ctx, domain)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, errors.WithMessage(err, "lookup host")
	}
	return len(hosts) > 0, nil
}

func isNotFound(err error) bool {
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr) && dnsErr.IsNotFound
}
