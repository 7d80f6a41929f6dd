package errcode

// 导出通知中的错误码：
// - 0：导出成功
// - 4xxx：无需重试的业务错误（例如工作区已被删除）
// - 5xxx：重试耗尽后的系统错误
const (
	OK              = 0
	ResourceMissing = 4004
	SystemError     = 5000
)
