package email

import (
	"bytes"
	"context"
	"html/template"
	"sync"
	texttpl "text/template"
	"time"

	"github.com/dropDatabas3/socialauth/internal/observability/logger"
)

// WelcomeVars feed the welcome templates.
type WelcomeVars struct {
	AppName  string
	UserName string
	Provider string
}

const (
	welcomeSubject = "Welcome to {{.AppName}}"
	welcomeHTML    = `<p>Hi {{if .UserName}}{{.UserName}}{{else}}there{{end}},</p>
<p>Your {{.AppName}} account is ready{{if .Provider}}. You signed up with {{.Provider}}{{end}}.</p>`
	welcomeText = `Hi {{if .UserName}}{{.UserName}}{{else}}there{{end}},

Your {{.AppName}} account is ready{{if .Provider}}. You signed up with {{.Provider}}{{end}}.
`
)

var (
	welcomeSubjectTpl = texttpl.Must(texttpl.New("subject").Parse(welcomeSubject))
	welcomeHTMLTpl    = template.Must(template.New("html").Parse(welcomeHTML))
	welcomeTextTpl    = texttpl.Must(texttpl.New("text").Parse(welcomeText))
)

// Notifier sends welcome mail in the background. A nil sender disables it.
type Notifier struct {
	sender  Sender
	appName string
	wg      sync.WaitGroup
}

func NewNotifier(sender Sender, appName string) *Notifier {
	if appName == "" {
		appName = "our service"
	}
	return &Notifier{sender: sender, appName: appName}
}

// Welcome queues a welcome message to addr. It returns immediately.
func (n *Notifier) Welcome(ctx context.Context, addr, userName, provider string) {
	if n == nil || n.sender == nil || addr == "" {
		return
	}
	vars := WelcomeVars{AppName: n.appName, UserName: userName, Provider: provider}
	log := logger.From(ctx).With(logger.Component("email"), logger.Op("Welcome"), logger.EmailMasked(addr))

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		subject, html, text, err := renderWelcome(vars)
		if err != nil {
			log.Error("render welcome", logger.Err(err))
			return
		}
		start := time.Now()
		if err := n.sender.Send(addr, subject, html, text); err != nil {
			log.Warn("welcome mail not sent", logger.Err(err))
			return
		}
		log.Info("welcome mail sent", logger.Duration(time.Since(start)))
	}()
}

// Wait blocks until queued mail is done. Called on shutdown.
func (n *Notifier) Wait() {
	if n != nil {
		n.wg.Wait()
	}
}

func renderWelcome(v WelcomeVars) (subject, html, text string, err error) {
	var sb, hb, tb bytes.Buffer
	if err = welcomeSubjectTpl.Execute(&sb, v); err != nil {
		return
	}
	if err = welcomeHTMLTpl.Execute(&hb, v); err != nil {
		return
	}
	if err = welcomeTextTpl.Execute(&tb, v); err != nil {
		return
	}
	return sb.String(), hb.String(), tb.String(), nil
}
