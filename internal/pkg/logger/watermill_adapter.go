package logger

import "github.com/ThreeDotsLabs/watermill"

// WatermillAdapter routes watermill's internal logging through ILogger.
type WatermillAdapter struct {
	log    ILogger
	fields watermill.LogFields
}

func NewWatermillAdapter(log ILogger) *WatermillAdapter {
	return &WatermillAdapter{log: log}
}

func (a *WatermillAdapter) Error(msg string, err error, fields watermill.LogFields) {
	details := a.merge(fields)
	details["error"] = err
	a.log.Error("Watermill", msg, details)
}

func (a *WatermillAdapter) Info(msg string, fields watermill.LogFields) {
	a.log.Info("Watermill", msg, a.merge(fields))
}

func (a *WatermillAdapter) Debug(msg string, fields watermill.LogFields) {
	a.log.Debug("Watermill", msg, a.merge(fields))
}

// Trace is folded into Debug.
func (a *WatermillAdapter) Trace(msg string, fields watermill.LogFields) {
	a.log.Debug("Watermill", msg, a.merge(fields))
}

func (a *WatermillAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &WatermillAdapter{log: a.log, fields: a.fields.Add(fields)}
}

func (a *WatermillAdapter) merge(fields watermill.LogFields) map[string]interface{} {
	out := make(map[string]interface{}, len(a.fields)+len(fields)+1)
	for k, v := range a.fields {
		out[k] = v
	}
	for k, v := range fields {
		out[k] = v
	}
	return out
}
