package script

import (
	"fmt"

	"github.com/Shopify/go-lua"

	"github.com/kbukum/runkit/runnable"
)

func goToLua(L *lua.State, value any) {
	switch v := value.(type) {
	case nil:
		L.PushNil()
	case string:
		L.PushString(v)
	case bool:
		L.PushBoolean(v)
	case int:
		L.PushInteger(v)
	case int32:
		L.PushInteger(int(v))
	case int64:
		L.PushInteger(int(v))
	case float32:
		L.PushNumber(float64(v))
	case float64:
		L.PushNumber(v)
	case []any:
		pushArray(L, v)
	case []string:
		arr := make([]any, len(v))
		for i, s := range v {
			arr[i] = s
		}
		pushArray(L, arr)
	case map[string]any:
		pushMap(L, runnable.ValuesOf(v))
	case *runnable.Values:
		pushMap(L, v)
	default:
		L.PushString(fmt.Sprintf("%v", v))
	}
}

func pushArray(L *lua.State, arr []any) {
	L.CreateTable(len(arr), 0)
	for i, item := range arr {
		L.PushInteger(i + 1)
		goToLua(L, item)
		L.SetTable(tableTableIndex)
	}
}

func pushMap(L *lua.State, v *runnable.Values) {
	L.CreateTable(0, v.Len())
	v.Each(func(k string, val any) bool {
		L.PushString(k)
		goToLua(L, val)
		L.SetTable(tableTableIndex)
		return true
	})
}

func luaToGo(L *lua.State, index int) any {
	switch L.TypeOf(index) {
	case lua.TypeBoolean:
		return L.ToBoolean(index)
	case lua.TypeNumber:
		num, _ := L.ToNumber(index)
		if num == float64(int(num)) {
			return int(num)
		}
		return num
	case lua.TypeString:
		s, _ := L.ToString(index)
		return s
	case lua.TypeTable:
		return tableToGo(L, index)
	default:
		return nil
	}
}

// tableToGo converts a sequence-like table to []any and anything else to
// map[string]any.
func tableToGo(L *lua.State, index int) any {
	abs := L.AbsIndex(index)
	length := 0
	isArray := true

	L.PushNil()
	for L.Next(abs) {
		if !L.IsNumber(-2) {
			isArray = false
			L.Pop(2)
			break
		}
		length++
		L.Pop(1)
	}

	if isArray && length > 0 {
		arr := make([]any, length)
		for i := 1; i <= length; i++ {
			L.RawGetInt(abs, i)
			arr[i-1] = luaToGo(L, -1)
			L.Pop(1)
		}
		return arr
	}

	result := map[string]any{}
	L.PushNil()
	for L.Next(abs) {
		var key string
		if L.IsString(-2) && L.TypeOf(-2) == lua.TypeString {
			key, _ = L.ToString(-2)
		} else {
			key = fmt.Sprintf("%v", luaToGo(L, -2))
		}
		result[key] = luaToGo(L, -1)
		L.Pop(1)
	}
	return result
}
