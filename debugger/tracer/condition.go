package tracer

import (
	"fmt"

	e "github.com/fansqz/go-tracer/error"
	lua "github.com/yuin/gopher-lua"
)

// 断点条件是一个Lua表达式，栈帧的局部变量作为全局变量可见，例如 `x > 3 and name == "a"`

// compileCondition 只编译不执行，用于设置条件时校验语法
func compileCondition(cond string) error {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()
	if _, err := L.LoadString("return " + cond); err != nil {
		return fmt.Errorf("%w: %v", e.ErrInvalidCondition, err)
	}
	return nil
}

func evalCondition(cond string, locals map[string]any) (bool, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()
	for name, value := range locals {
		L.SetGlobal(name, toLValue(value))
	}
	if err := L.DoString("return " + cond); err != nil {
		return false, fmt.Errorf("%w: %v", e.ErrInvalidCondition, err)
	}
	ret := L.Get(-1)
	L.Pop(1)
	return lua.LVAsBool(ret), nil
}

func toLValue(v any) lua.LValue {
	switch v := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(v)
	case int:
		return lua.LNumber(v)
	case int32:
		return lua.LNumber(v)
	case int64:
		return lua.LNumber(v)
	case float64:
		return lua.LNumber(v)
	case string:
		return lua.LString(v)
	default:
		return lua.LString(fmt.Sprint(v))
	}
}
