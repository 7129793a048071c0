package webserver

import (
	"time"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/clinicore/clinicore/internal/domain"
	"github.com/clinicore/clinicore/pkg/common"
)

func (s *WebServer) authenticate(username, password string) (*domain.SysOpr, error) {
	var operator domain.SysOpr
	err := s.appCtx.DB().
		Where("username = ? and status = ?", username, common.ENABLED).
		First(&operator).Error
	if err != nil {
		return nil, errors.Wrap(err, "operator lookup failed")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(operator.Password), []byte(password)); err != nil {
		return nil, errors.New("password mismatch")
	}
	s.appCtx.DB().Model(&domain.SysOpr{}).
		Where("id = ?", operator.ID).
		Update("last_login", time.Now())
	return &operator, nil
}
