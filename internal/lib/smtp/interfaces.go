// Package smtp provides the outgoing-mail transport for the notification
// sender.
package smtp

import "io"

// Client is the SMTP client surface used by the sender.
type Client interface {
	Mail(from string) error
	Rcpt(to string) error
	Data() (io.WriteCloser, error)
	Quit() error
	Close() error
}

// TransportInterface connects to the SMTP server.
type TransportInterface interface {
	Connect() (Client, error)
	GetSMTPUser() string
}
