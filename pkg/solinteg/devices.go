package solinteg

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const linkedDevicesEndpoint = "/wrapper/topic/getLinkedDevices"

// DeviceRecord is one inverter (or smart device) linked to the account,
// keyed by its serial number.
type DeviceRecord struct {
	DeviceSn   string   `json:"deviceSn"`
	DeviceName string   `json:"deviceName,omitempty"`
	ModelType  string   `json:"modelType,omitempty"`
	Soc        *float64 `json:"soc,omitempty"`
	UploadTime string   `json:"uploadTime,omitempty"`
}

// deviceCacheFile is the durable cache shape on disk.
type deviceCacheFile struct {
	Timestamp float64        `json:"timestamp"`
	Devices   []DeviceRecord `json:"devices"`
}

// ListLinkedDevices returns every device linked to the account. The upstream
// listing call is slow for large accounts, so results are cached in memory and
// in a JSON file with a long TTL. Lookup order: fresh in-memory copy, fresh
// durable file (promoted into memory), upstream fetch. Concurrent cache misses
// are coalesced into one upstream call.
func (c *Client) ListLinkedDevices(ctx context.Context) ([]DeviceRecord, error) {
	if devices, ok := c.cachedList(); ok {
		log.Debug().Int("devices", len(devices)).Msg("solinteg: serving device list from cache")
		return devices, nil
	}

	result, err, _ := c.fetchGroup.Do("linked-devices", func() (any, error) {
		// Re-check under the group: a concurrent caller may have refreshed
		// the cache while this one waited.
		if devices, ok := c.cachedList(); ok {
			return devices, nil
		}
		return c.fetchLinkedDevices(ctx)
	})
	if err != nil {
		return nil, err
	}
	return result.([]DeviceRecord), nil
}

// cachedList checks the memory tier, then the durable tier. A hit on the
// durable tier is promoted into memory, which stays authoritative until the
// process restarts.
func (c *Client) cachedList() ([]DeviceRecord, bool) {
	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()

	now := c.now()
	if c.cachedDevices != nil && now.Before(c.cachedAt.Add(c.cacheTTL)) {
		return copyDevices(c.cachedDevices), true
	}

	file, err := c.readCacheFile()
	if err != nil {
		log.Warn().Err(err).Str("path", c.cachePath).Msg("solinteg: device cache file unusable, treating as miss")
		return nil, false
	}
	if file == nil || file.Devices == nil {
		return nil, false
	}
	fetchedAt := time.Unix(0, int64(file.Timestamp*float64(time.Second)))
	if !now.Before(fetchedAt.Add(c.cacheTTL)) {
		log.Info().Str("path", c.cachePath).Msg("solinteg: durable device cache is stale")
		return nil, false
	}
	c.cachedDevices = file.Devices
	c.cachedAt = fetchedAt
	log.Info().Int("devices", len(file.Devices)).Msg("solinteg: promoted durable device cache into memory")
	return copyDevices(c.cachedDevices), true
}

func (c *Client) readCacheFile() (*deviceCacheFile, error) {
	raw, err := os.ReadFile(c.cachePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var file deviceCacheFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, err
	}
	return &file, nil
}

// fetchLinkedDevices pulls the listing from upstream and writes both cache
// tiers. The durable write happens before returning so the two tiers never
// diverge for longer than one fetch.
func (c *Client) fetchLinkedDevices(ctx context.Context) ([]DeviceRecord, error) {
	body, err := c.request(ctx, http.MethodGet, linkedDevicesEndpoint, nil, nil, listingTimeout)
	if err != nil {
		return nil, errors.Wrap(err, "list linked devices")
	}

	var elements []json.RawMessage
	if err := json.Unmarshal(body, &elements); err != nil {
		return nil, errors.Wrap(ErrUnexpectedFormat, "linked devices body is not a list")
	}
	devices := decodeDeviceRecords(elements)

	fetchedAt := c.now()
	c.writeCacheFile(devices, fetchedAt)

	c.cacheMu.Lock()
	c.cachedDevices = devices
	c.cachedAt = fetchedAt
	c.cacheMu.Unlock()

	log.Info().Int("devices", len(devices)).Msg("solinteg: fetched and cached linked devices")
	return copyDevices(devices), nil
}

// decodeDeviceRecords tolerates the two element encodings the API emits:
// records, and records serialized once more as JSON text. Anything else is
// dropped with a warning.
func decodeDeviceRecords(elements []json.RawMessage) []DeviceRecord {
	devices := make([]DeviceRecord, 0, len(elements))
	for _, element := range elements {
		var record DeviceRecord
		if err := json.Unmarshal(element, &record); err == nil {
			devices = append(devices, record)
			continue
		}
		var text string
		if err := json.Unmarshal(element, &text); err == nil {
			if err := json.Unmarshal([]byte(text), &record); err == nil {
				devices = append(devices, record)
				continue
			}
		}
		log.Warn().Str("element", truncate(string(element), 100)).Msg("solinteg: dropping undecodable device list element")
	}
	return devices
}

func (c *Client) writeCacheFile(devices []DeviceRecord, fetchedAt time.Time) {
	payload, err := json.MarshalIndent(deviceCacheFile{
		Timestamp: float64(fetchedAt.UnixNano()) / float64(time.Second),
		Devices:   devices,
	}, "", "    ")
	if err != nil {
		log.Error().Err(err).Msg("solinteg: marshal device cache failed")
		return
	}
	if err := os.WriteFile(c.cachePath, payload, 0o644); err != nil {
		log.Error().Err(err).Str("path", c.cachePath).Msg("solinteg: write device cache file failed")
	}
}

func copyDevices(devices []DeviceRecord) []DeviceRecord {
	out := make([]DeviceRecord, len(devices))
	copy(out, devices)
	return out
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
