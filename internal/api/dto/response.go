package dto

// Response 统一响应结构，HTTP 状态码固定 200，业务状态看 Code
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}
