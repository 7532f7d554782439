package queue

import (
	"encoding/json"

	"github.com/affiliate-desk/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskAffiliateCounters 推广用户计数累加任务
	TaskAffiliateCounters = constants.TaskAffiliateCounters
	// TaskReferralValidate 单条推荐记录校验任务
	TaskReferralValidate = constants.TaskReferralValidate
	// TaskOperatorReconcile 运营方批量校验任务
	TaskOperatorReconcile = constants.TaskOperatorReconcile
)

// AffiliateCountersPayload 计数累加任务载荷
type AffiliateCountersPayload struct {
	ReferralID uint `json:"referral_id"`
}

// ReferralValidatePayload 单条校验任务载荷
type ReferralValidatePayload struct {
	ReferralID uint `json:"referral_id"`
}

// OperatorReconcilePayload 批量校验任务载荷
type OperatorReconcilePayload struct {
	OperatorID uint `json:"operator_id"`
}

// NewAffiliateCountersTask 创建计数累加任务
func NewAffiliateCountersTask(payload AffiliateCountersPayload) (*asynq.Task, error) {
	return newJSONTask(TaskAffiliateCounters, payload)
}

// NewReferralValidateTask 创建单条校验任务
func NewReferralValidateTask(payload ReferralValidatePayload) (*asynq.Task, error) {
	return newJSONTask(TaskReferralValidate, payload)
}

// NewOperatorReconcileTask 创建批量校验任务
func NewOperatorReconcileTask(payload OperatorReconcilePayload) (*asynq.Task, error) {
	return newJSONTask(TaskOperatorReconcile, payload)
}

// ParsePayload 解析任务载荷
func ParsePayload(task *asynq.Task, target interface{}) error {
	return json.Unmarshal(task.Payload(), target)
}

func newJSONTask(taskType string, payload interface{}) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskType, body), nil
}
