package transform

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/thisisjab/gelfpush/entity"
	lua "github.com/yuin/gopher-lua"
	luajson "layeh.com/gopher-json"
)

type LuaTransformConfig struct {
	Name       string `yaml:"-"`
	ScriptPath string `yaml:"script-path"`
}

// LuaTransform rewrites decoded messages with a user-provided lua script.
// The script MUST contain a function named `transform_message` taking 4
// parameters:
// 1. host as a string
// 2. short_message as a string
// 3. timestamp as a number (epoch seconds)
// 4. fields as a table of scalars
// and returning the same 4 values back, rewritten as needed. Table values
// returned inside fields are stored as their JSON text, since message fields
// only hold scalars. The script can access a JSON helper with
// `local json = require("json")`.
type LuaTransform struct {
	cfg  LuaTransformConfig
	pool *sync.Pool
}

func NewLuaTransform(cfg LuaTransformConfig) (*LuaTransform, error) {
	pool := &sync.Pool{
		New: func() any {
			L := lua.NewState(lua.Options{
				SkipOpenLibs: true, // Don't load anything by default
			})

			// Manually open only the safe libraries
			// We skip 'os' and 'io' to prevent system commands/file access
			for _, lib := range []struct {
				name string
				fn   lua.LGFunction
			}{
				{lua.LoadLibName, lua.OpenPackage},  // Allows 'require'
				{lua.BaseLibName, lua.OpenBase},     // Allows 'print', 'pairs', etc.
				{lua.TabLibName, lua.OpenTable},     // Allows 'table.insert', etc.
				{lua.StringLibName, lua.OpenString}, // Allows string manipulation
			} {
				L.Push(L.NewFunction(lib.fn))
				L.Push(lua.LString(lib.name))
				L.Call(1, 0)
			}

			// Pre-register the JSON module in this VM
			// This allows the user to do: local json = require("json")
			luajson.Preload(L)

			// Load the user's script once per VM in the pool
			if err := L.DoFile(cfg.ScriptPath); err != nil {
				panic(err)
			}

			return L
		},
	}

	return &LuaTransform{
		cfg:  cfg,
		pool: pool,
	}, nil
}

func (t *LuaTransform) Name() string {
	return t.cfg.Name
}

func (t *LuaTransform) Transform(msg entity.GelfMessage) (entity.GelfMessage, error) {
	L := t.pool.Get().(*lua.LState)
	defer t.pool.Put(L)

	// Call the "transform_message" function defined in Lua
	err := L.CallByParam(lua.P{
		Fn:      L.GetGlobal("transform_message"),
		NRet:    4,
		Protect: true,
	}, lua.LString(msg.Host), lua.LString(msg.ShortMessage), lua.LNumber(msg.Timestamp), fieldsToLuaTable(L, msg.Fields))

	if err != nil {
		return msg, fmt.Errorf("lua script error: %w", err)
	}

	// Extract values
	luaFields := L.ToTable(-1)
	timestamp := float64(L.ToNumber(-2))
	shortMessage := L.ToString(-3)
	host := L.ToString(-4)

	// Clean up stack IMMEDIATELY after extraction
	L.Pop(4)

	if luaFields == nil {
		return msg, fmt.Errorf("transform_message returned no fields table")
	}

	return entity.GelfMessage{
		ID:           msg.ID,
		Host:         host,
		ShortMessage: shortMessage,
		Timestamp:    timestamp,
		Fields:       luaTableToFields(luaFields),
	}, nil
}

func fieldsToLuaTable(L *lua.LState, fields map[string]any) *lua.LTable {
	table := L.NewTable()
	for name, value := range fields {
		switch v := value.(type) {
		case bool:
			table.RawSetString(name, lua.LBool(v))
		case int64:
			table.RawSetString(name, lua.LNumber(v))
		case float64:
			table.RawSetString(name, lua.LNumber(v))
		case string:
			table.RawSetString(name, lua.LString(v))
		default:
			table.RawSetString(name, lua.LString(fmt.Sprint(v)))
		}
	}
	return table
}

func luaTableToFields(table *lua.LTable) map[string]any {
	fields := make(map[string]any)
	table.ForEach(func(key, value lua.LValue) {
		// A nil value removes the field.
		if value == lua.LNil {
			return
		}
		fields[key.String()] = convertLuaValue(value)
	})
	return fields
}

// convertLuaValue maps a lua value back to a message field scalar. Tables
// are flattened to their JSON text so the scalar-only field invariant holds.
func convertLuaValue(value lua.LValue) any {
	switch v := value.(type) {
	case lua.LNumber:
		return float64(v)
	case lua.LString:
		return string(v)
	case lua.LBool:
		return bool(v)
	case *lua.LTable:
		nested := make(map[string]any)
		v.ForEach(func(key, val lua.LValue) {
			nested[key.String()] = convertLuaValue(val)
		})
		text, err := json.Marshal(nested)
		if err != nil {
			return fmt.Sprint(nested)
		}
		return string(text)
	default:
		// Fallback for types we don't explicitly handle (like functions or userdata)
		return v.String()
	}
}
