package protocol

type Response struct {
	Sequence uint        `json:"sequence"`
	Success  bool        `json:"success"`
	Message  string      `json:"message"`
	Data     interface{} `json:"data"`
}

// NewResponse 根据命令的执行结果创建响应
func NewResponse(sequence uint, data interface{}, err error) *Response {
	if err != nil {
		return &Response{Sequence: sequence, Success: false, Message: err.Error()}
	}
	return &Response{Sequence: sequence, Success: true, Data: data}
}
