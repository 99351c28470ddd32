package handlers

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// translateValidationError 把绑定校验错误转换为可读消息
func translateValidationError(err error) string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return "请求参数格式错误"
	}

	for _, fieldError := range validationErrors {
		switch fieldError.Tag() {
		case "required":
			return fmt.Sprintf("字段 %s 为必填项", fieldError.Field())
		case "oneof":
			return fmt.Sprintf("字段 %s 的取值必须是以下之一: %s", fieldError.Field(), fieldError.Param())
		case "max":
			return fmt.Sprintf("字段 %s 超过最大长度 %s", fieldError.Field(), fieldError.Param())
		case "min":
			return fmt.Sprintf("字段 %s 低于最小长度 %s", fieldError.Field(), fieldError.Param())
		case "email":
			return fmt.Sprintf("字段 %s 不是有效的邮箱地址", fieldError.Field())
		default:
			return fmt.Sprintf("字段 %s 校验失败", fieldError.Field())
		}
	}
	return "请求参数格式错误"
}
