package ui

import (
	"fmt"
	"os/exec"
	"runtime"
)

// NotificationSender delivers a desktop notification
type NotificationSender interface {
	Send(title, message string) error
}

type linuxSender struct{}

func (linuxSender) Send(title, message string) error {
	return exec.Command("notify-send", "--app-name=tweetvault", title, message).Run()
}

type macSender struct{}

func (macSender) Send(title, message string) error {
	script := fmt.Sprintf(`display notification %q with title %q`, message, title)
	return exec.Command("osascript", "-e", script).Run()
}

// Notifier tells the user a long crawl has ended
type Notifier struct {
	sender NotificationSender
}

// NewNotifier picks a sender for the current platform. Platforms without
// one only get console output.
func NewNotifier() *Notifier {
	switch runtime.GOOS {
	case "linux":
		return &Notifier{sender: linuxSender{}}
	case "darwin":
		return &Notifier{sender: macSender{}}
	default:
		return &Notifier{}
	}
}

// NewNotifierWithSender uses sender directly
func NewNotifierWithSender(sender NotificationSender) *Notifier {
	return &Notifier{sender: sender}
}

// CrawlFinished reports the end of a run for account
func (n *Notifier) CrawlFinished(account string, err error) error {
	if n == nil || n.sender == nil {
		return nil
	}
	if err != nil {
		return n.sender.Send("tweetvault: crawl failed", fmt.Sprintf("@%s: %v", account, err))
	}
	return n.sender.Send("tweetvault: crawl finished", fmt.Sprintf("Archive of @%s is up to date", account))
}
