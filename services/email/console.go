package emailsvc

import (
	"fmt"
	"net/mail"
	"strings"
	"sync"

	"github.com/classledger/backend/core"
)

var (
	// SentMessages collects everything "sent" in TEST mode so tests can
	// assert on outgoing mail.
	SentMessages = make([]core.EmailMessage, 0)
	mu           sync.Mutex
)

type consoleService struct {
	defaultFromEmail mail.Address
	subjPrefix       string
	disableOutput    bool
}

var _ core.EmailService = (*consoleService)(nil)

func NewConsoleService(conf *core.Config) core.EmailService {
	return &consoleService{
		defaultFromEmail: conf.DefaultFromEmail(),
		subjPrefix:       "[" + conf.AppName + "] ",
		disableOutput:    conf.TestMode,
	}
}

func (svc consoleService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		if !msg.HasRecipients() || !(msg.HasContent() || msg.HasAttachments()) {
			continue
		}

		mu.Lock()
		SentMessages = append(SentMessages, *msg)
		mu.Unlock()

		if svc.disableOutput {
			continue
		}

		tos := make([]string, 0, len(msg.To))
		for _, to := range msg.To {
			tos = append(tos, to.String())
		}
		fmt.Println(strings.Repeat("-", 70))
		fmt.Printf("From: %s\n", svc.defaultFromEmail.String())
		fmt.Printf("To: %s\n", strings.Join(tos, ", "))
		fmt.Printf("Subject: %s%s\n\n", svc.subjPrefix, msg.Subject)
		fmt.Println(msg.TextContent)
		fmt.Println(strings.Repeat("-", 70))
	}
}
