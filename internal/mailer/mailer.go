// Package mailer emails operators when their messaging channel connects. It
// is a plain event-bus subscriber; failures never feed back into the channel
// state machine.
package mailer

import (
	"fmt"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/clinicore/clinicore/internal/app"
	"github.com/clinicore/clinicore/internal/domain"
	"github.com/clinicore/clinicore/pkg/eventbus"
)

type Notifier struct {
	appCtx app.AppContext
}

// Attach subscribes the notifier to the channel-connected topic.
func Attach(appCtx app.AppContext) error {
	n := &Notifier{appCtx: appCtx}
	return appCtx.Bus().SubscribeAsync(eventbus.TopicChannelConnected, n.onChannelConnected)
}

func (n *Notifier) onChannelConnected(tenantId, instanceId int64) {
	addr := n.appCtx.GetSettingsStringValue(app.SettingsChannel, app.ConfigChannelNotifyEmail)
	smtp := n.appCtx.Config().Smtp
	if addr == "" || smtp.Host == "" {
		return
	}

	var tenant domain.Tenant
	tenantName := fmt.Sprintf("tenant %d", tenantId)
	if err := n.appCtx.DB().First(&tenant, tenantId).Error; err == nil {
		tenantName = tenant.Name
	}

	m := gomail.NewMessage()
	m.SetHeader("From", smtp.From)
	m.SetHeader("To", addr)
	m.SetHeader("Subject", fmt.Sprintf("[Clinicore] Messaging channel connected for %s", tenantName))
	m.SetBody("text/plain", fmt.Sprintf(
		"The messaging channel for %s is now connected and ready to use.\n", tenantName))

	d := gomail.NewDialer(smtp.Host, smtp.Port, smtp.Username, smtp.Password)
	if err := d.DialAndSend(m); err != nil {
		zap.L().Warn("mailer: connect notification failed",
			zap.Int64("tenant_id", tenantId), zap.Error(err))
		return
	}
	zap.L().Info("mailer: connect notification sent",
		zap.Int64("tenant_id", tenantId), zap.String("to", addr))
}
