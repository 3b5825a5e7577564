package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strconv"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"github.com/smallbiznis/giftbot/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

type Params struct {
	fx.In

	Config   config.Config
	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

// NewService grants role:admin to the configured ADMIN_IDS and revokes it
// from anyone removed from the list since the last start.
func NewService(p Params) (Authorizer, error) {
	s := &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
	if err := s.SyncAdmins(p.Config.AdminIDs); err != nil {
		return nil, fmt.Errorf("sync admins: %w", err)
	}
	return s, nil
}

func (s *ServiceImpl) SyncAdmins(ids []int64) error {
	wanted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		wanted[subject(id)] = struct{}{}
	}

	existing, err := s.enforcer.GetFilteredGroupingPolicy(1, RoleAdmin)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 {
			continue
		}
		if _, ok := wanted[rule[0]]; ok {
			continue
		}
		if _, err := s.enforcer.RemoveGroupingPolicy(rule[0], rule[1]); err != nil {
			return err
		}
		s.log.Info("admin revoked", zap.String("subject", rule[0]))
	}

	for sub := range wanted {
		has, err := s.enforcer.HasGroupingPolicy(sub, RoleAdmin)
		if err != nil {
			return err
		}
		if has {
			continue
		}
		if _, err := s.enforcer.AddGroupingPolicy(sub, RoleAdmin); err != nil {
			return err
		}
	}

	s.log.Info("admins synced", zap.Int("count", len(wanted)))
	return nil
}

func (s *ServiceImpl) IsAdmin(ctx context.Context, userID int64) bool {
	return s.Authorize(ctx, userID, ActionAdminView) == nil
}

func (s *ServiceImpl) Authorize(ctx context.Context, userID int64, action string) error {
	if userID <= 0 {
		return ErrInvalidActor
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	allowed, err := s.enforcer.Enforce(subject(userID), ObjectGiveaway, action)
	if err != nil {
		s.log.Error("enforce failed", zap.Int64("user_id", userID), zap.String("action", action), zap.Error(err))
		return err
	}
	if !allowed {
		s.log.Debug("authorization denied", zap.Int64("user_id", userID), zap.String("action", action))
		return ErrForbidden
	}
	return nil
}

func subject(userID int64) string {
	return "user:" + strconv.FormatInt(userID, 10)
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		{RoleAdmin, ObjectGiveaway, ActionAdminView},
		{RoleAdmin, ObjectGiveaway, ActionRequestDecide},
		{RoleAdmin, ObjectGiveaway, ActionGiftAcknowledge},
		{RoleAdmin, ObjectGiveaway, ActionLedgerWrite},
		{RoleAdmin, ObjectGiveaway, ActionSettingsWrite},
	}

	for _, policy := range policies {
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
