package trace_debugger

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	. "github.com/fansqz/go-tracer/debugger"
)

// variables 按名称排序的局部变量
func variables(locals map[string]any) []*Variable {
	names := make([]string, 0, len(locals))
	for name := range locals {
		names = append(names, name)
	}
	sort.Strings(names)
	vars := make([]*Variable, 0, len(names))
	for _, name := range names {
		value := formatValue(locals[name])
		vars = append(vars, &Variable{
			Name:  name,
			Type:  typeName(locals[name]),
			Value: &value,
		})
	}
	return vars
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "NoneType"
	case bool:
		return "bool"
	case int, int64:
		return "int"
	case float64:
		return "float"
	case string:
		return "str"
	case []any:
		return "list"
	case map[string]any:
		return "dict"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func formatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return "None"
	case string:
		return strconv.Quote(v)
	case bool:
		if v {
			return "True"
		}
		return "False"
	default:
		return fmt.Sprint(v)
	}
}

// parseValue 解析用户输入的值：整数、浮点数、True/False、None、带引号的字符串，其他作为字符串
func parseValue(s string) any {
	s = strings.TrimSpace(s)
	switch s {
	case "None", "nil":
		return nil
	case "True", "true":
		return true
	case "False", "false":
		return false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if unquoted, err := strconv.Unquote(s); err == nil {
		return unquoted
	}
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		return s[1 : len(s)-1]
	}
	return s
}
