package channel

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/clinicore/clinicore/internal/domain"
)

// InstanceStore is the persistence contract for channel instances. The
// record store is the single source of truth; the reconciler only ever moves
// status forward through MarkConnected.
type InstanceStore interface {
	GetByTenant(ctx context.Context, tenantId int64) (*domain.ChannelInstance, error)
	GetByID(ctx context.Context, id int64) (*domain.ChannelInstance, error)
	ListPending(ctx context.Context) ([]domain.ChannelInstance, error)
	Create(ctx context.Context, inst *domain.ChannelInstance) error
	SaveArtifacts(ctx context.Context, id int64, qrPayload, numericCode string) error
	SetWebhook(ctx context.Context, id int64, url string) error
	// MarkConnected flips status to connected unless it already is. Returns
	// whether a row actually changed, which keeps the transition idempotent.
	MarkConnected(ctx context.Context, id int64) (bool, error)
	Delete(ctx context.Context, id int64) error
	TenantName(ctx context.Context, tenantId int64) string
	AppendLog(ctx context.Context, log *domain.ChannelOprLog) error
}

// GormInstanceStore implements InstanceStore on the application database.
type GormInstanceStore struct {
	db *gorm.DB
}

func NewGormInstanceStore(db *gorm.DB) *GormInstanceStore {
	return &GormInstanceStore{db: db}
}

var _ InstanceStore = (*GormInstanceStore)(nil)

func (r *GormInstanceStore) GetByTenant(ctx context.Context, tenantId int64) (*domain.ChannelInstance, error) {
	var inst domain.ChannelInstance
	err := r.db.WithContext(ctx).Where("tenant_id = ?", tenantId).First(&inst).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInstanceNotFound
	}
	if err != nil {
		return nil, err
	}
	return &inst, nil
}

func (r *GormInstanceStore) GetByID(ctx context.Context, id int64) (*domain.ChannelInstance, error) {
	var inst domain.ChannelInstance
	err := r.db.WithContext(ctx).First(&inst, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInstanceNotFound
	}
	if err != nil {
		return nil, err
	}
	return &inst, nil
}

func (r *GormInstanceStore) ListPending(ctx context.Context) ([]domain.ChannelInstance, error) {
	var insts []domain.ChannelInstance
	err := r.db.WithContext(ctx).
		Where("status = ?", domain.ChannelStatusPending).
		Find(&insts).Error
	return insts, err
}

func (r *GormInstanceStore) Create(ctx context.Context, inst *domain.ChannelInstance) error {
	return r.db.WithContext(ctx).Create(inst).Error
}

func (r *GormInstanceStore) SaveArtifacts(ctx context.Context, id int64, qrPayload, numericCode string) error {
	updates := map[string]interface{}{"updated_at": time.Now()}
	if qrPayload != "" {
		updates["qr_payload"] = qrPayload
	}
	if numericCode != "" {
		updates["numeric_code"] = numericCode
	}
	return r.db.WithContext(ctx).Model(&domain.ChannelInstance{}).
		Where("id = ?", id).Updates(updates).Error
}

func (r *GormInstanceStore) SetWebhook(ctx context.Context, id int64, url string) error {
	return r.db.WithContext(ctx).Model(&domain.ChannelInstance{}).
		Where("id = ?", id).Updates(map[string]interface{}{
		"webhook_endpoint": url,
		"updated_at":       time.Now(),
	}).Error
}

func (r *GormInstanceStore) MarkConnected(ctx context.Context, id int64) (bool, error) {
	tx := r.db.WithContext(ctx).Model(&domain.ChannelInstance{}).
		Where("id = ? AND status <> ?", id, domain.ChannelStatusConnected).
		Updates(map[string]interface{}{
			"status":     domain.ChannelStatusConnected,
			"updated_at": time.Now(),
		})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *GormInstanceStore) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.ChannelInstance{}).Error
}

func (r *GormInstanceStore) TenantName(ctx context.Context, tenantId int64) string {
	var tenant domain.Tenant
	if err := r.db.WithContext(ctx).First(&tenant, tenantId).Error; err != nil {
		return ""
	}
	return tenant.Name
}

func (r *GormInstanceStore) AppendLog(ctx context.Context, log *domain.ChannelOprLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}
