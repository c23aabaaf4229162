package crm

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"syscall"
)

var (
	// ErrCRMUnavailable is matched by every TransportError
	ErrCRMUnavailable = errors.New("keycrm: service unavailable")
	// ErrCRMRejected is matched by every RemoteError
	ErrCRMRejected = errors.New("keycrm: request rejected")
	// ErrInvalidResponse means the body was not JSON
	ErrInvalidResponse = errors.New("keycrm: invalid response body")
)

// Transport error codes
const (
	TransportCodeTimeout           = "timeout"
	TransportCodeDNS               = "dns"
	TransportCodeConnectionRefused = "connection_refused"
	TransportCodeTLS               = "tls"
	TransportCodeCanceled          = "canceled"
	TransportCodeNetwork           = "network"
)

// TransportError is a network-level failure: no response was received
type TransportError struct {
	Code string
	Err  error
}

// Error implements the error interface
func (e *TransportError) Error() string {
	return fmt.Sprintf("Error occurred when posting data to KeyCRM: %v, error code: %s", e.Err, e.Code)
}

// ErrorCode returns the transport classification
func (e *TransportError) ErrorCode() string {
	return e.Code
}

// Unwrap exposes both the sentinel and the underlying cause
func (e *TransportError) Unwrap() []error {
	return []error{ErrCRMUnavailable, e.Err}
}

// RemoteError is a response the CRM marked as failed
type RemoteError struct {
	Code    int
	Message string
}

// Error implements the error interface
func (e *RemoteError) Error() string {
	return fmt.Sprintf("Error occurred when posting data to KeyCRM: %s, error code: %d", e.Message, e.Code)
}

// ErrorCode returns "remote_<code>"
func (e *RemoteError) ErrorCode() string {
	return fmt.Sprintf("remote_%d", e.Code)
}

// Unwrap allows errors.Is(err, ErrCRMRejected)
func (e *RemoteError) Unwrap() error {
	return ErrCRMRejected
}

// classifyTransportError maps a client error to a short error code
func classifyTransportError(err error) string {
	var (
		dnsErr       *net.DNSError
		netErr       net.Error
		certErr      *tls.CertificateVerificationError
		recordErr    tls.RecordHeaderError
		authorityErr x509.UnknownAuthorityError
		hostnameErr  x509.HostnameError
	)
	switch {
	case errors.Is(err, context.Canceled):
		return TransportCodeCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return TransportCodeTimeout
	case errors.As(err, &dnsErr):
		return TransportCodeDNS
	case errors.Is(err, syscall.ECONNREFUSED):
		return TransportCodeConnectionRefused
	case errors.As(err, &certErr), errors.As(err, &recordErr),
		errors.As(err, &authorityErr), errors.As(err, &hostnameErr):
		return TransportCodeTLS
	case errors.As(err, &netErr) && netErr.Timeout():
		return TransportCodeTimeout
	default:
		return TransportCodeNetwork
	}
}
