package solinteg

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"
)

const historyTimeLayout = "2006-01-02 15:04:05"

// TimeRange bounds a history query. The API accepts at most a 24 hour span.
type TimeRange struct {
	Start string
	End   string
}

func (r TimeRange) validate() error {
	start, err := time.Parse(historyTimeLayout, r.Start)
	if err != nil {
		return errors.Errorf("start time %q is not in YYYY-MM-DD HH:MM:SS form", r.Start)
	}
	end, err := time.Parse(historyTimeLayout, r.End)
	if err != nil {
		return errors.Errorf("end time %q is not in YYYY-MM-DD HH:MM:SS form", r.End)
	}
	if !end.After(start) {
		return errors.New("end time must be greater than start time")
	}
	if end.Sub(start) > 24*time.Hour {
		return errors.New("time range cannot exceed 24 hours")
	}
	return nil
}

// GetDevicesByTopic returns the devices under the account for one topic.
func (c *Client) GetDevicesByTopic(ctx context.Context, topic string) ([]map[string]any, error) {
	if topic == "" {
		return nil, errors.New("topic is required")
	}
	body, err := c.request(ctx, http.MethodGet, "/wrapper/topic/getDeviceByTopic", url.Values{"topic": {topic}}, nil, listingTimeout)
	if err != nil {
		return nil, errors.Wrapf(err, "get devices for topic %s", topic)
	}
	return decodeObjectList(body)
}

// GetDeviceConfigData fetches the current configuration parameters for a device.
func (c *Client) GetDeviceConfigData(ctx context.Context, deviceSn string) (map[string]any, error) {
	return c.deviceObjectQuery(ctx, "/wrapper/device/queryDeviceConfigData", deviceSn, "get config data")
}

// GetDeviceRealtimeData fetches the latest realtime operational data for a device.
func (c *Client) GetDeviceRealtimeData(ctx context.Context, deviceSn string) (map[string]any, error) {
	return c.deviceObjectQuery(ctx, "/wrapper/device/queryDeviceRealtimeData", deviceSn, "get realtime data")
}

// GetDeviceHistoryConfigData fetches configuration history within a time range.
func (c *Client) GetDeviceHistoryConfigData(ctx context.Context, deviceSn string, tr TimeRange) ([]map[string]any, error) {
	return c.deviceHistoryQuery(ctx, "/wrapper/device/queryHistoryDeviceConfigData", deviceSn, tr, "get history config data")
}

// GetDeviceHistoryData fetches operational history within a time range.
func (c *Client) GetDeviceHistoryData(ctx context.Context, deviceSn string, tr TimeRange) ([]map[string]any, error) {
	return c.deviceHistoryQuery(ctx, "/wrapper/history/query", deviceSn, tr, "get history data")
}

// Smart-device variants of the queries above. These endpoints have no
// /wrapper prefix.

func (c *Client) GetSmartDeviceConfigData(ctx context.Context, deviceSn string) (map[string]any, error) {
	return c.deviceObjectQuery(ctx, "/device/querySmartDeviceConfigData", deviceSn, "get smart device config data")
}

func (c *Client) GetSmartDeviceRealtimeData(ctx context.Context, deviceSn string) (map[string]any, error) {
	return c.deviceObjectQuery(ctx, "/device/querySmartDeviceRealtimeData", deviceSn, "get smart device realtime data")
}

func (c *Client) GetSmartDeviceHistoryConfigData(ctx context.Context, deviceSn string, tr TimeRange) ([]map[string]any, error) {
	return c.deviceHistoryQuery(ctx, "/device/queryHistorySmartDeviceConfigData", deviceSn, tr, "get smart device history config data")
}

func (c *Client) GetSmartDeviceHistoryData(ctx context.Context, deviceSn string, tr TimeRange) ([]map[string]any, error) {
	return c.deviceHistoryQuery(ctx, "/history/querySmartDevice", deviceSn, tr, "get smart device history data")
}

func (c *Client) deviceObjectQuery(ctx context.Context, endpoint, deviceSn, op string) (map[string]any, error) {
	if deviceSn == "" {
		return nil, errors.Errorf("%s: device serial is required", op)
	}
	body, err := c.request(ctx, http.MethodGet, endpoint, url.Values{"deviceSn": {deviceSn}}, nil, listingTimeout)
	if err != nil {
		return nil, errors.Wrapf(err, "%s for device %s", op, deviceSn)
	}
	result, err := decodeObject(body)
	if err != nil {
		return nil, errors.Wrapf(err, "%s for device %s", op, deviceSn)
	}
	return result, nil
}

func (c *Client) deviceHistoryQuery(ctx context.Context, endpoint, deviceSn string, tr TimeRange, op string) ([]map[string]any, error) {
	if deviceSn == "" {
		return nil, errors.Errorf("%s: device serial is required", op)
	}
	if err := tr.validate(); err != nil {
		return nil, errors.Wrapf(err, "%s for device %s", op, deviceSn)
	}
	query := url.Values{
		"deviceSn":  {deviceSn},
		"startTime": {tr.Start},
		"endTime":   {tr.End},
	}
	body, err := c.request(ctx, http.MethodGet, endpoint, query, nil, rangeQueryTimeout)
	if err != nil {
		return nil, errors.Wrapf(err, "%s for device %s", op, deviceSn)
	}
	result, err := decodeObjectList(body)
	if err != nil {
		return nil, errors.Wrapf(err, "%s for device %s", op, deviceSn)
	}
	return result, nil
}

func decodeObject(body json.RawMessage) (map[string]any, error) {
	if isEmptyBody(body) {
		return map[string]any{}, nil
	}
	var result map[string]any
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, errors.Wrap(ErrUnexpectedFormat, "body is not a mapping")
	}
	return result, nil
}

func decodeObjectList(body json.RawMessage) ([]map[string]any, error) {
	if isEmptyBody(body) || string(body) == "[]" {
		return []map[string]any{}, nil
	}
	var result []map[string]any
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, errors.Wrap(ErrUnexpectedFormat, "body is not a list of mappings")
	}
	return result, nil
}
