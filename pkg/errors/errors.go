package errors

// ========== 错误码常量定义 ==========

// CodeSuccess 成功码
const (
	CodeSuccess = 200
)

// HTTP层错误码 (400-599)
const (
	CodeInvalidParam = 400
	CodeUnauthorized = 401
	CodeForbidden    = 403
	CodeNotFound     = 404
	CodeConflict     = 409
	CodeServerError  = 500
)

// 业务错误码 (1000+)
const (
	CodeRuleInvalid       = 1001 // 工作流规则配置不合法
	CodeRuleImmutableEdit = 1002 // 尝试修改规则的实体类型/触发类型
	CodeTicketTransition  = 1003 // 工单状态流转不合法
)
