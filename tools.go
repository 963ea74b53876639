package energyagent

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/deg-pilot/EnergyAgent/pkg/solinteg"
)

// IsSmartDevice reports whether a serial belongs to the smart meter family.
// Smart serials carry an M marker and must use the v2 endpoints.
func IsSmartDevice(deviceSn string) bool {
	return strings.Contains(deviceSn, "M")
}

// Tool is one callable inverter operation exposed to the agent loop.
type Tool struct {
	Name        string
	Description string
	Call        func(ctx context.Context, args map[string]any) (any, error)
}

// Toolset exposes the inverter API as named tools. Data tools route to the
// smart endpoints automatically when the serial marks a smart device.
type Toolset struct {
	client *solinteg.Client
	tools  []Tool
}

// NewToolset builds the registry over an inverter client.
func NewToolset(client *solinteg.Client) *Toolset {
	ts := &Toolset{client: client}
	ts.tools = []Tool{
		{
			Name:        "list_linked_devices",
			Description: "List every device linked to the installer account, with serial, name, model and state of charge.",
			Call: func(ctx context.Context, args map[string]any) (any, error) {
				return client.ListLinkedDevices(ctx)
			},
		},
		{
			Name:        "get_devices_by_topic",
			Description: "List the devices registered under one MQTT topic.",
			Call: func(ctx context.Context, args map[string]any) (any, error) {
				topic, err := stringArg(args, "topic")
				if err != nil {
					return nil, err
				}
				return client.GetDevicesByTopic(ctx, topic)
			},
		},
		{
			Name:        "get_device_config_data",
			Description: "Fetch the current configuration parameters of a device.",
			Call: func(ctx context.Context, args map[string]any) (any, error) {
				deviceSn, err := stringArg(args, "deviceSn")
				if err != nil {
					return nil, err
				}
				if IsSmartDevice(deviceSn) {
					return client.GetSmartDeviceConfigData(ctx, deviceSn)
				}
				return client.GetDeviceConfigData(ctx, deviceSn)
			},
		},
		{
			Name:        "get_device_realtime_data",
			Description: "Fetch the latest realtime operational data of a device.",
			Call: func(ctx context.Context, args map[string]any) (any, error) {
				deviceSn, err := stringArg(args, "deviceSn")
				if err != nil {
					return nil, err
				}
				if IsSmartDevice(deviceSn) {
					return client.GetSmartDeviceRealtimeData(ctx, deviceSn)
				}
				return client.GetDeviceRealtimeData(ctx, deviceSn)
			},
		},
		{
			Name:        "get_device_history_config_data",
			Description: "Fetch configuration history for a device within a time range of at most 24 hours.",
			Call: func(ctx context.Context, args map[string]any) (any, error) {
				deviceSn, tr, err := historyArgs(args)
				if err != nil {
					return nil, err
				}
				if IsSmartDevice(deviceSn) {
					return client.GetSmartDeviceHistoryConfigData(ctx, deviceSn, tr)
				}
				return client.GetDeviceHistoryConfigData(ctx, deviceSn, tr)
			},
		},
		{
			Name:        "get_device_history_data",
			Description: "Fetch operational history for a device within a time range of at most 24 hours.",
			Call: func(ctx context.Context, args map[string]any) (any, error) {
				deviceSn, tr, err := historyArgs(args)
				if err != nil {
					return nil, err
				}
				if IsSmartDevice(deviceSn) {
					return client.GetSmartDeviceHistoryData(ctx, deviceSn, tr)
				}
				return client.GetDeviceHistoryData(ctx, deviceSn, tr)
			},
		},
		{
			Name:        "check_command_result",
			Description: "Poll a submitted device command by record id until it settles or times out.",
			Call: func(ctx context.Context, args map[string]any) (any, error) {
				recordID, err := stringArg(args, "recordId")
				if err != nil {
					return nil, err
				}
				settingCode, _ := args["settingCode"].(string)
				interval := durationArg(args, "pollInterval", 2*time.Second)
				timeout := durationArg(args, "timeout", 30*time.Second)
				return client.AwaitCommandResult(ctx, recordID, settingCode, interval, timeout), nil
			},
		},
	}
	return ts
}

// Tools returns the registered tools in declaration order.
func (ts *Toolset) Tools() []Tool {
	return ts.tools
}

// Lookup finds a tool by name.
func (ts *Toolset) Lookup(name string) (Tool, bool) {
	for _, tool := range ts.tools {
		if tool.Name == name {
			return tool, true
		}
	}
	return Tool{}, false
}

func stringArg(args map[string]any, key string) (string, error) {
	value, _ := args[key].(string)
	if strings.TrimSpace(value) == "" {
		return "", errors.Errorf("argument %q is required", key)
	}
	return value, nil
}

func historyArgs(args map[string]any) (string, solinteg.TimeRange, error) {
	deviceSn, err := stringArg(args, "deviceSn")
	if err != nil {
		return "", solinteg.TimeRange{}, err
	}
	start, err := stringArg(args, "startTime")
	if err != nil {
		return "", solinteg.TimeRange{}, err
	}
	end, err := stringArg(args, "endTime")
	if err != nil {
		return "", solinteg.TimeRange{}, err
	}
	return deviceSn, solinteg.TimeRange{Start: start, End: end}, nil
}

func durationArg(args map[string]any, key string, fallback time.Duration) time.Duration {
	switch value := args[key].(type) {
	case float64:
		if value > 0 {
			return time.Duration(value * float64(time.Second))
		}
	case int:
		if value > 0 {
			return time.Duration(value) * time.Second
		}
	case time.Duration:
		if value > 0 {
			return value
		}
	}
	return fallback
}
