package constants

// CaseFoldType 文件名比较时的大小写策略
type CaseFoldType string

const (
	// CaseFoldAuto 探测文件系统是否区分大小写
	CaseFoldAuto CaseFoldType = "auto"
	// CaseFoldNone 区分大小写
	CaseFoldNone CaseFoldType = "sensitive"
	// CaseFoldLower 统一转换为小写
	CaseFoldLower CaseFoldType = "lower"
)

// EventFormat 控制台事件输出格式
type EventFormat string

const (
	EventFormatText EventFormat = "text"
	EventFormatJSON EventFormat = "json"
	EventFormatDAP  EventFormat = "dap"
)
