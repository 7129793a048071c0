package domain

import "time"

// ChannelInstance statuses. The state machine is one-way: a record is created
// pending and moves to connected at most once; nothing moves it back.
const (
	ChannelStatusPending   = "pending"
	ChannelStatusConnected = "connected"
)

// ChannelInstance links a tenant to its external messaging channel at the
// automation peer. At most one row exists per tenant.
type ChannelInstance struct {
	ID               int64     `json:"id,string" gorm:"primaryKey"`
	TenantId         int64     `gorm:"uniqueIndex" json:"tenant_id,string"`
	RemoteInstanceId string    `gorm:"index" json:"remote_instance_id"` // identity issued by the automation peer
	RemoteToken      string    `json:"remote_token"`
	DisplayLabel     string    `json:"display_label"`
	OwnerContact     string    `json:"owner_contact"`
	Status           string    `gorm:"index" json:"status"`
	QrPayload        string    `gorm:"type:text" json:"qr_payload"`
	NumericCode      string    `json:"numeric_code"`
	WebhookEndpoint  string    `json:"webhook_endpoint"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (ChannelInstance) TableName() string {
	return "channel_instance"
}

// HasPairingArtifact reports whether at least one pairing artifact is stored.
func (c *ChannelInstance) HasPairingArtifact() bool {
	return c.QrPayload != "" || c.NumericCode != ""
}

// ChannelOprLog records one channel operation for auditing.
type ChannelOprLog struct {
	ID        int64     `json:"id,string"`
	TenantId  int64     `gorm:"index" json:"tenant_id,string"`
	OprName   string    `json:"opr_name" csv:"operator"`
	Action    string    `json:"action" csv:"action"`
	Result    string    `json:"result" csv:"result"`
	Detail    string    `json:"detail" csv:"detail"`
	OptTime   time.Time `json:"opt_time" csv:"time"`
	CreatedAt time.Time `json:"created_at" csv:"-"`
}

func (ChannelOprLog) TableName() string {
	return "channel_opr_log"
}
