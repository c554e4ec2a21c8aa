package modules

import (
	"context"
	"fmt"

	"tnctl/types"
	"tnctl/validators"
)

type MailParams struct {
	FromName     *string `yaml:"from_name"`
	FromEmail    *string `yaml:"from_email" validate:"omitempty,email"`
	Server       *string `yaml:"server" validate:"omitempty,hostname_rfc1123|ip"`
	Port         *int    `yaml:"port" validate:"omitempty,min=1,max=65535"`
	Security     *string `yaml:"security" validate:"omitempty,oneof=PLAIN SSL TLS"`
	SMTP         *bool   `yaml:"smtp"`
	SMTPUser     *string `yaml:"smtp_user"`
	SMTPPassword *string `yaml:"smtp_password"`
	OAuthID      *string `yaml:"oauth_id"`
	OAuthSecret  *string `yaml:"oauth_secret"`
	OAuthToken   *string `yaml:"oauth_token"`
}

var mailModule = define(
	"mail",
	"Configure outgoing mail",
	map[string]string{"password": "smtp_password"},
	func() *MailParams {
		return &MailParams{
			Port:     validators.Pointer(25),
			Security: validators.Pointer("PLAIN"),
		}
	},
	runMail,
)

func runMail(ctx context.Context, env *Env, p *MailParams) (*types.Result, error) {
	res := types.NewResult()

	cfg, err := getConfig[types.MailConfig](ctx, env.MW, "mail.config")

	if err != nil {
		return nil, fmt.Errorf("error looking up mail config: %w", err)
	}

	d := newDiff()
	update(d, "fromname", p.FromName, cfg.FromName)
	update(d, "fromemail", p.FromEmail, cfg.FromEmail)
	update(d, "outgoingserver", p.Server, cfg.OutgoingServer)
	update(d, "port", p.Port, cfg.Port)
	update(d, "security", p.Security, cfg.Security)
	update(d, "smtp", p.SMTP, cfg.SMTP)
	updatePtr(d, "user", p.SMTPUser, cfg.User)
	updatePtr(d, "pass", p.SMTPPassword, cfg.Pass)

	oauth := newDiff()

	for _, f := range []struct {
		key  string
		want *string
	}{
		{"client_id", p.OAuthID},
		{"client_secret", p.OAuthSecret},
		{"refresh_token", p.OAuthToken},
	} {
		if f.want == nil {
			continue
		}

		if have, ok := cfg.OAuth[f.key]; !ok || have != *f.want {
			oauth.Set(f.key, *f.want)
		}
	}

	if !oauth.Empty() {
		d.Set("oauth", oauth)
	}

	if d.Empty() {
		return res, nil
	}

	res.Changed = true

	if env.CheckMode {
		res.Msg = fmt.Sprintf("Would have updated mail: %s", d.Redacted("pass", "oauth"))
		return res, nil
	}

	if _, err := env.MW.Call(ctx, "mail.update", d); err != nil {
		return nil, fmt.Errorf("error updating mail with %s: %w", d.Redacted("pass", "oauth"), err)
	}

	res.Msg = "Updated mail settings"

	return res, nil
}
