// Package deg builds and submits beckn-protocol trade payloads to a DEG
// (Digital Energy Grid) gateway. The agent uses it to turn a recommended
// time window into a /search intent and to simulate the provider-side
// /on_search answer during pilots.
package deg

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const (
	becknDomain  = "energy"
	becknVersion = "1.1.0"

	bapID  = "p2pTrading-bap.com"
	bapURI = "https://api.p2pTrading-bap.com/pilot/bap/energy/v1"

	defaultMeterAddress = "der://uppcl.meter/98765456"
	defaultUtilityName  = "UPPCL"
)

// Descriptor names a beckn entity by free text or code.
type Descriptor struct {
	Name string `json:"name,omitempty"`
	Code string `json:"code,omitempty"`
}

// Context is the beckn routing envelope carried on every message.
type Context struct {
	Domain        string   `json:"domain"`
	Action        string   `json:"action"`
	Location      Location `json:"location"`
	Version       string   `json:"version"`
	BapID         string   `json:"bap_id"`
	BapURI        string   `json:"bap_uri"`
	TransactionID string   `json:"transaction_id"`
	MessageID     string   `json:"message_id"`
	Timestamp     string   `json:"timestamp"`
}

type Location struct {
	Country Descriptor `json:"country"`
	City    Descriptor `json:"city"`
}

type Measure struct {
	Value string `json:"value"`
	Unit  string `json:"unit"`
}

type Quantity struct {
	Selected struct {
		Measure Measure `json:"measure"`
	} `json:"selected"`
}

type Item struct {
	Descriptor Descriptor `json:"descriptor"`
	Quantity   Quantity   `json:"quantity"`
}

type Organization struct {
	Descriptor Descriptor `json:"descriptor"`
}

type Agent struct {
	Organization Organization `json:"organization"`
}

type StopTime struct {
	Range TimeWindow `json:"range"`
}

type TimeWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type Stop struct {
	Type     string   `json:"type"`
	Location Address  `json:"location"`
	Time     StopTime `json:"time"`
}

type Address struct {
	Address string `json:"address"`
}

type Fulfillment struct {
	Agent Agent  `json:"agent"`
	Stops []Stop `json:"stops"`
}

type Intent struct {
	Item        Item        `json:"item"`
	Fulfillment Fulfillment `json:"fulfillment"`
}

// SearchPayload is the body posted to the gateway /search endpoint.
type SearchPayload struct {
	Context Context `json:"context"`
	Message struct {
		Intent Intent `json:"intent"`
	} `json:"message"`
}

// BuildSearchPayload turns a recommendation window like
// "2025-09-04 00:00-06:00" into a beckn search intent for quantityKWh of
// energy. Bare hours ("0-6") are normalized to HH:MM, and stray quotes or
// commas left over from model output are stripped.
func BuildSearchPayload(timeWindow string, quantityKWh float64) (SearchPayload, error) {
	start, end, err := parseWindow(timeWindow)
	if err != nil {
		return SearchPayload{}, err
	}

	txnID := uuid.NewString()
	payload := SearchPayload{
		Context: Context{
			Domain: becknDomain,
			Action: "search",
			Location: Location{
				Country: Descriptor{Name: "India", Code: "IND"},
				City:    Descriptor{Name: "Lucknow", Code: "std:522"},
			},
			Version:       becknVersion,
			BapID:         bapID,
			BapURI:        bapURI,
			TransactionID: txnID,
			MessageID:     txnID,
			Timestamp:     time.Now().UTC().Format("2006-01-02T15:04:05Z"),
		},
	}
	payload.Message.Intent = Intent{
		Item: Item{
			Descriptor: Descriptor{Code: "energy"},
			Quantity:   quantityMeasure(quantityKWh),
		},
		Fulfillment: Fulfillment{
			Agent: Agent{Organization: Organization{Descriptor: Descriptor{Name: defaultUtilityName}}},
			Stops: []Stop{{
				Type:     "end",
				Location: Address{Address: defaultMeterAddress},
				Time:     StopTime{Range: TimeWindow{Start: start, End: end}},
			}},
		},
	}
	return payload, nil
}

func quantityMeasure(kwh float64) Quantity {
	var q Quantity
	q.Selected.Measure = Measure{Value: formatQuantity(kwh), Unit: "kWH"}
	return q
}

func formatQuantity(kwh float64) string {
	return strconv.FormatFloat(kwh, 'f', -1, 64)
}

func parseWindow(timeWindow string) (string, string, error) {
	parts := strings.Fields(strings.TrimSpace(timeWindow))
	if len(parts) == 0 {
		return "", "", errors.New("deg: time window is empty")
	}
	datePart := parts[0]
	hourRange := "00:00-01:00"
	if len(parts) > 1 {
		hourRange = parts[1]
	}

	bounds := strings.SplitN(hourRange, "-", 2)
	if len(bounds) != 2 {
		return "", "", errors.Errorf("deg: hour range %q is not START-END", hourRange)
	}
	startHour := normalizeHour(bounds[0])
	endHour := normalizeHour(bounds[1])

	return datePart + "T" + startHour, datePart + "T" + endHour, nil
}

func normalizeHour(hour string) string {
	cleaned := strings.TrimSpace(hour)
	cleaned = strings.ReplaceAll(cleaned, `"`, "")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	if !strings.Contains(cleaned, ":") {
		cleaned += ":00"
	}
	return cleaned
}
