package debezium

// CDCEvent represents raw CDC event from Debezium (JSON converter, schemas disabled)
type CDCEvent struct {
	Before    map[string]interface{} `json:"before"`
	After     map[string]interface{} `json:"after"`
	Source    CDCSource              `json:"source"`
	Operation string                 `json:"op"` // c=create, u=update, d=delete, r=read
	TsMs      int64                  `json:"ts_ms"`
}

type CDCSource struct {
	Version   string `json:"version"`
	Connector string `json:"connector"`
	Name      string `json:"name"`
	TsMs      int64  `json:"ts_ms"`
	Snapshot  string `json:"snapshot"`
	DB        string `json:"db"`
	Schema    string `json:"schema"`
	Table     string `json:"table"`
	TxID      int64  `json:"txId"`
	LSN       int64  `json:"lsn"`
}

// Row returns the most recent image of the row: after for c/u/r, before for d.
func (e *CDCEvent) Row() map[string]interface{} {
	if e.After != nil {
		return e.After
	}
	return e.Before
}

// envelope é o formato com schemas.enable=true, onde o evento vem dentro de "payload".
type envelope struct {
	Payload *CDCEvent `json:"payload"`
}
