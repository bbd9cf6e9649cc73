package homework

import (
	"fmt"
	"time"
)

// Status is the review state of a submitted homework as reported by the API.
type Status string

const (
	StatusApproved  Status = "approved"
	StatusReviewing Status = "reviewing"
	StatusRejected  Status = "rejected"
)

// Response keys.
const (
	KeyHomeworks    = "homeworks"
	KeyDateUpdated  = "date_updated"
	KeyHomeworkName = "homework_name"
	KeyStatus       = "status"
)

// StatusChangedTemplate is the text sent when a homework changes status.
// Keep it byte-for-byte.
const StatusChangedTemplate = `Изменился статус проверки работы "%s". %s`

var verdicts = map[Status]string{
	StatusApproved:  "Работа проверена: ревьюеру всё понравилось. Ура!",
	StatusReviewing: "Работа взята на проверку ревьюером.",
	StatusRejected:  "Работа проверена: у ревьюера есть замечания.",
}

// Verdict returns the localized text for a status and whether the status is known.
func Verdict(s Status) (string, bool) {
	v, ok := verdicts[s]
	return v, ok
}

// Record is a single homework entry exactly as decoded from the API.
type Record map[string]any

// CheckResponse validates the decoded API body and returns the most recent homework record.
func CheckResponse(response any) (Record, error) {
	body, ok := response.(map[string]any)
	if !ok {
		return nil, ErrNotAMapping
	}

	raw, ok := body[KeyHomeworks]
	if !ok {
		return nil, &MissingFieldError{Field: KeyHomeworks, Kind: ErrSchema}
	}

	homeworks, ok := raw.([]any)
	if !ok {
		return nil, ErrHomeworksNotAList
	}
	if len(homeworks) == 0 {
		return nil, ErrNoHomeworks
	}

	record, ok := homeworks[0].(map[string]any)
	if !ok {
		return nil, ErrRecordNotAMapping
	}
	return Record(record), nil
}

// ParseStatus turns a record into the status-change message.
// The status is checked against the verdict table before any lookup text is built.
func ParseStatus(record Record) (string, error) {
	name, err := stringField(record, KeyHomeworkName)
	if err != nil {
		return "", err
	}
	rawStatus, err := stringField(record, KeyStatus)
	if err != nil {
		return "", err
	}

	status := Status(rawStatus)
	verdict, known := Verdict(status)
	if !known {
		return "", &UnknownStatusError{Status: rawStatus}
	}

	return fmt.Sprintf(StatusChangedTemplate, name, verdict), nil
}

func stringField(record Record, key string) (string, error) {
	raw, ok := record[key]
	if !ok {
		return "", &MissingFieldError{Field: key, Kind: ErrRecord}
	}
	value, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s is not a string", ErrRecord, key)
	}
	return value, nil
}

// UpdatedAt returns the record's last review change time, when the API provides one.
func UpdatedAt(record Record) (time.Time, bool) {
	raw, ok := record[KeyDateUpdated].(string)
	if !ok || raw == "" {
		return time.Time{}, false
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}
