package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/affiliate-desk/internal/models"
)

const authStateCacheTTL = 10 * time.Minute

// OperatorAuthState 运营方鉴权快照，仅用于服务端 Redis 缓存
type OperatorAuthState struct {
	OperatorID uint   `json:"operator_id"`
	Email      string `json:"email"`
	Status     string `json:"status"`
	UpdatedAt  int64  `json:"updated_at"`
}

// BuildOperatorAuthState 构建运营方鉴权快照
func BuildOperatorAuthState(operator *models.Operator) *OperatorAuthState {
	if operator == nil {
		return nil
	}
	return &OperatorAuthState{
		OperatorID: operator.ID,
		Email:      operator.Email,
		Status:     operator.Status,
		UpdatedAt:  operator.UpdatedAt.Unix(),
	}
}

// GetOperatorAuthState 读取运营方鉴权快照
func GetOperatorAuthState(ctx context.Context, operatorID uint) (*OperatorAuthState, error) {
	if operatorID == 0 {
		return nil, nil
	}
	var state OperatorAuthState
	ok, err := GetJSON(ctx, operatorAuthStateKey(operatorID), &state)
	if err != nil || !ok {
		return nil, err
	}
	return &state, nil
}

// SetOperatorAuthState 写入运营方鉴权快照
func SetOperatorAuthState(ctx context.Context, state *OperatorAuthState) error {
	if state == nil || state.OperatorID == 0 {
		return nil
	}
	return SetJSON(ctx, operatorAuthStateKey(state.OperatorID), state, authStateCacheTTL)
}

// DelOperatorAuthState 删除运营方鉴权快照
func DelOperatorAuthState(ctx context.Context, operatorID uint) error {
	if operatorID == 0 {
		return nil
	}
	return Del(ctx, operatorAuthStateKey(operatorID))
}

func operatorAuthStateKey(operatorID uint) string {
	return fmt.Sprintf("auth:operator:%d", operatorID)
}
