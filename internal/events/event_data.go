package events

import "encoding/json"

// EventData is the interface that all event data types must implement
type EventData interface {
	// EventType returns the event type this data is associated with
	EventType() EventType
}

// DashboardRefreshedData contains data for DashboardRefreshed events
type DashboardRefreshedData struct {
	SnapshotID string   `json:"snapshot_id"`
	Datasets   []string `json:"datasets"`
	Stale      bool     `json:"stale"`
}

// EventType returns the event type for DashboardRefreshedData
func (d *DashboardRefreshedData) EventType() EventType {
	return DashboardRefreshed
}

// DatasetUpdatedData contains data for DatasetUpdated events
type DatasetUpdatedData struct {
	Dataset string `json:"dataset"`
	Points  int    `json:"points"`
	Dropped int    `json:"dropped"`
	Stale   bool   `json:"stale"`
}

// EventType returns the event type for DatasetUpdatedData
func (d *DatasetUpdatedData) EventType() EventType {
	return DatasetUpdated
}

// FeedFailedData contains data for FeedFailed events
type FeedFailedData struct {
	Dataset  string `json:"dataset"`
	Endpoint string `json:"endpoint"`
	Error    string `json:"error"`
}

// EventType returns the event type for FeedFailedData
func (d *FeedFailedData) EventType() EventType {
	return FeedFailed
}

// RangeChangedData contains data for RangeChanged events
type RangeChangedData struct {
	Chart string `json:"chart"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// EventType returns the event type for RangeChangedData
func (d *RangeChangedData) EventType() EventType {
	return RangeChanged
}

// ErrorEventData contains data for ErrorOccurred events
type ErrorEventData struct {
	Error   string                 `json:"error"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// EventType returns the event type for ErrorEventData
func (d *ErrorEventData) EventType() EventType {
	return ErrorOccurred
}

// GetTypedData converts the Data map back into its typed form.
// Returns nil when the type is unknown or the payload does not fit.
func (e *Event) GetTypedData() EventData {
	if e.Data == nil {
		return nil
	}

	var data EventData
	switch e.Type {
	case DashboardRefreshed:
		data = &DashboardRefreshedData{}
	case DatasetUpdated:
		data = &DatasetUpdatedData{}
	case FeedFailed:
		data = &FeedFailedData{}
	case RangeChanged:
		data = &RangeChangedData{}
	case ErrorOccurred:
		data = &ErrorEventData{}
	default:
		return nil
	}

	if err := convertMapToStruct(e.Data, data); err != nil {
		return nil
	}
	return data
}

func convertMapToStruct(m map[string]interface{}, v interface{}) error {
	jsonBytes, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return json.Unmarshal(jsonBytes, v)
}

func convertEventDataToMap(data EventData) map[string]interface{} {
	if data == nil {
		return nil
	}

	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return nil
	}

	var result map[string]interface{}
	if err := json.Unmarshal(jsonBytes, &result); err != nil {
		return nil
	}
	return result
}
