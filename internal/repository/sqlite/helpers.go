package sqlite

import (
	"database/sql"
	"encoding/json"
)

// nullToString safely converts sql.NullString to string
func nullToString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// stringToNull safely converts string to sql.NullString
func stringToNull(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// marshalVars serializes a variable map, mapping empty to NULL
func marshalVars(vars map[string]any) (sql.NullString, error) {
	if len(vars) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(vars)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

// unmarshalVars deserializes a variable map, mapping NULL to nil
func unmarshalVars(ns sql.NullString, target *map[string]any) error {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(ns.String), target)
}

// marshalNames serializes a name list, mapping empty to NULL
func marshalNames(names []string) (sql.NullString, error) {
	if len(names) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(names)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

// unmarshalNames deserializes a name list, mapping NULL to nil
func unmarshalNames(ns sql.NullString, target *[]string) error {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(ns.String), target)
}
