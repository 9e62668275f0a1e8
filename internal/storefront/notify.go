package storefront

import "log"

// Notifier surfaces outcomes to the user.
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

// LogNotifier writes notifications to a logger.
type LogNotifier struct {
	Logger *log.Logger
}

func (n LogNotifier) Success(msg string) {
	if n.Logger != nil {
		n.Logger.Printf("ok: %s", msg)
	}
}

func (n LogNotifier) Error(msg string) {
	if n.Logger != nil {
		n.Logger.Printf("error: %s", msg)
	}
}

type discardNotifier struct{}

func (discardNotifier) Success(string) {}
func (discardNotifier) Error(string)   {}
