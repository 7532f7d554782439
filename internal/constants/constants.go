package constants

// 运营方状态常量
const (
	OperatorStatusActive   = "active"
	OperatorStatusDisabled = "disabled"
)

// 推广计划类型常量（与事件类型取值一致）
const (
	ProgramKindSignup   = "signup"
	ProgramKindPurchase = "purchase"
)

// 佣金计算方式常量
const (
	CommissionTypeFixed      = "fixed"
	CommissionTypePercentage = "percentage"
)

// 推广计划状态常量
const (
	ProgramStatusActive   = "active"
	ProgramStatusInactive = "inactive"
)

// 推广用户状态常量
const (
	AffiliateStatusActive   = "active"
	AffiliateStatusInactive = "inactive"
	AffiliateStatusPending  = "pending"
)

// 归因事件类型常量
const (
	EventTypeSignup   = "signup"
	EventTypePurchase = "purchase"
)

// 推荐记录状态常量
const (
	ReferralStatusPending  = "pending"
	ReferralStatusApproved = "approved"
	ReferralStatusRejected = "rejected"
	ReferralStatusPaid     = "paid"
)

// 推荐记录校验状态常量
const (
	ValidationStatusGreen = "green"
	ValidationStatusAmber = "amber"
	ValidationStatusRed   = "red"
	ValidationStatusError = "error"
)

// 打款状态常量
const (
	PayoutStatusPending    = "pending"
	PayoutStatusProcessing = "processing"
	PayoutStatusCompleted  = "completed"
	PayoutStatusFailed     = "failed"
)

// 账本流水类型常量
const (
	TransactionKindReferral = "referral"
	TransactionKindPayout   = "payout"
)

// 账本打款抵扣策略常量
const (
	PayoutOffsetNonFailed = "non_failed"
	PayoutOffsetCompleted = "completed"
)

// 队列名称常量
const (
	QueueDefault  = "default"
	QueueCritical = "critical"
)

// 异步任务类型常量
const (
	TaskAffiliateCounters = "affiliate:counters"
	TaskReferralValidate  = "referral:validate"
	TaskOperatorReconcile = "operator:reconcile"
)

// 归因令牌常量
const (
	AttributionCookieName = "ref_token"
	VisitorCookieName     = "ref_vid"
	AttributionQueryCode  = "ref"
	AttributionQueryTo    = "to"
)
