package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"tasktree/internal/models"
)

// Value encodings for date-family attributes.
const (
	dateLayout = "2006-01-02"
	// datetime values use RFC 3339
)

// Which validation-rule keys are legal depends on the attribute type.
// Each type gets a JSON schema for its rules document; a rules set that
// names a key the type cannot interpret is rejected up front.
var ruleSchemaSources = map[models.AttributeType]string{
	models.TypeText: `{
		"type": "object",
		"properties": {
			"minLength": {"type": "integer", "minimum": 0},
			"maxLength": {"type": "integer", "minimum": 0},
			"pattern": {"type": "string"}
		},
		"additionalProperties": false
	}`,
	models.TypeInteger: `{
		"type": "object",
		"properties": {
			"min": {"type": "number"},
			"max": {"type": "number"}
		},
		"additionalProperties": false
	}`,
	models.TypeDecimal: `{
		"type": "object",
		"properties": {
			"min": {"type": "number"},
			"max": {"type": "number"}
		},
		"additionalProperties": false
	}`,
	models.TypeSingleChoice: `{
		"type": "object",
		"properties": {
			"choices": {
				"type": "array",
				"items": {"type": "string", "minLength": 1},
				"minItems": 1
			}
		},
		"required": ["choices"],
		"additionalProperties": false
	}`,
	models.TypeMultipleChoice: `{
		"type": "object",
		"properties": {
			"choices": {
				"type": "array",
				"items": {"type": "string", "minLength": 1},
				"minItems": 1
			}
		},
		"required": ["choices"],
		"additionalProperties": false
	}`,
	models.TypeDate:          `{"type": "object", "additionalProperties": false}`,
	models.TypeDateTime:      `{"type": "object", "additionalProperties": false}`,
	models.TypeBoolean:       `{"type": "object", "additionalProperties": false}`,
	models.TypeURL:           `{"type": "object", "additionalProperties": false}`,
	models.TypeFileReference: `{"type": "object", "additionalProperties": false}`,
}

var ruleSchemas = func() map[models.AttributeType]*jsonschema.Schema {
	out := make(map[models.AttributeType]*jsonschema.Schema, len(ruleSchemaSources))
	for typ, src := range ruleSchemaSources {
		out[typ] = jsonschema.MustCompileString(fmt.Sprintf("rules-%s.json", typ), src)
	}
	return out
}()

// validateRules checks that a rules document makes sense for the type.
func validateRules(typ models.AttributeType, rules *models.AttributeRules) error {
	if rules == nil {
		return nil
	}
	raw, err := json.Marshal(rules)
	if err != nil {
		return validationf("encode validation rules: %v", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return validationf("decode validation rules: %v", err)
	}
	if err := ruleSchemas[typ].Validate(doc); err != nil {
		return validationf("validation rules not valid for type %s: %v", typ, err)
	}
	if rules.Pattern != "" {
		if _, err := regexp.Compile(rules.Pattern); err != nil {
			return validationf("pattern rule: %v", err)
		}
	}
	if rules.MinLength != nil && rules.MaxLength != nil && *rules.MinLength > *rules.MaxLength {
		return validationf("minLength %d exceeds maxLength %d", *rules.MinLength, *rules.MaxLength)
	}
	if rules.Min != nil && rules.Max != nil && *rules.Min > *rules.Max {
		return validationf("min %v exceeds max %v", *rules.Min, *rules.Max)
	}
	return nil
}

// CreateAttributeDefinition declares a new custom attribute.
func (db *DB) CreateAttributeDefinition(name string, typ models.AttributeType, required bool, defaultValue *string, rules *models.AttributeRules) (*models.AttributeDefinition, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationf("attribute name is required")
	}
	if _, err := models.ParseAttributeType(string(typ)); err != nil {
		return nil, validationf("%v", err)
	}
	if err := validateRules(typ, rules); err != nil {
		return nil, err
	}
	def := &models.AttributeDefinition{Name: name, Type: typ, Required: required, Rules: rules}
	if defaultValue != nil {
		if err := checkValue(def, *defaultValue); err != nil {
			return nil, validationf("default value: %v", err)
		}
	}

	var exists int64
	err := db.QueryRow("SELECT id FROM attribute_definitions WHERE LOWER(name) = LOWER(?)", name).Scan(&exists)
	if err == nil {
		return nil, conflictf("attribute %q already exists", name)
	}
	if err != sql.ErrNoRows {
		return nil, storef("lookup attribute %q: %v", name, err)
	}

	var rulesJSON *string
	if rules != nil {
		raw, err := json.Marshal(rules)
		if err != nil {
			return nil, validationf("encode validation rules: %v", err)
		}
		s := string(raw)
		rulesJSON = &s
	}

	result, err := db.Exec(`
		INSERT INTO attribute_definitions (name, type, is_required, default_value, validation_rules)
		VALUES (?, ?, ?, ?, ?)
	`, name, string(typ), required, defaultValue, rulesJSON)
	if err != nil {
		return nil, storef("insert attribute definition: %v", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, storef("attribute definition insert id: %v", err)
	}
	return db.GetAttributeDefinition(id)
}

// GetAttributeDefinition retrieves a definition by ID.
func (db *DB) GetAttributeDefinition(id int64) (*models.AttributeDefinition, error) {
	row := db.QueryRow(`
		SELECT id, name, type, is_required, default_value, validation_rules, created_at
		FROM attribute_definitions WHERE id = ?
	`, id)
	def, err := scanDefinition(row)
	if err == sql.ErrNoRows {
		return nil, notFoundf("attribute definition %d", id)
	}
	if err != nil {
		return nil, storef("get attribute definition %d: %v", id, err)
	}
	return def, nil
}

// ListAttributeDefinitions returns all definitions ordered by name.
func (db *DB) ListAttributeDefinitions() ([]models.AttributeDefinition, error) {
	rows, err := db.Query(`
		SELECT id, name, type, is_required, default_value, validation_rules, created_at
		FROM attribute_definitions ORDER BY name
	`)
	if err != nil {
		return nil, storef("list attribute definitions: %v", err)
	}
	defer rows.Close()

	var defs []models.AttributeDefinition
	for rows.Next() {
		def, err := scanDefinition(rows)
		if err != nil {
			return nil, storef("scan attribute definition: %v", err)
		}
		defs = append(defs, *def)
	}
	return defs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDefinition(row rowScanner) (*models.AttributeDefinition, error) {
	def := &models.AttributeDefinition{}
	var typ string
	var defVal, rulesJSON sql.NullString
	if err := row.Scan(&def.ID, &def.Name, &typ, &def.Required, &defVal, &rulesJSON, &def.CreatedAt); err != nil {
		return nil, err
	}
	def.Type = models.AttributeType(typ)
	if defVal.Valid {
		def.DefaultValue = &defVal.String
	}
	if rulesJSON.Valid && rulesJSON.String != "" {
		var rules models.AttributeRules
		if err := json.Unmarshal([]byte(rulesJSON.String), &rules); err != nil {
			return nil, err
		}
		def.Rules = &rules
	}
	return def, nil
}

// DeleteAttributeDefinition hard-deletes a definition and every value
// referencing it. False if the definition did not exist.
func (db *DB) DeleteAttributeDefinition(id int64) (bool, error) {
	var found int64
	err := db.QueryRow("SELECT id FROM attribute_definitions WHERE id = ?", id).Scan(&found)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, storef("lookup attribute definition %d: %v", id, err)
	}
	err = db.withTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec("DELETE FROM attribute_values WHERE definition_id = ?", id); err != nil {
			return storef("delete values of definition %d: %v", id, err)
		}
		if _, err := tx.Exec("DELETE FROM attribute_definitions WHERE id = ?", id); err != nil {
			return storef("delete definition %d: %v", id, err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// checkValue type-checks a raw value against a definition, naming the
// violated constraint on failure.
func checkValue(def *models.AttributeDefinition, raw string) error {
	rules := def.Rules
	switch def.Type {
	case models.TypeText:
		if rules != nil {
			if rules.MinLength != nil && len(raw) < *rules.MinLength {
				return fmt.Errorf("shorter than minLength %d", *rules.MinLength)
			}
			if rules.MaxLength != nil && len(raw) > *rules.MaxLength {
				return fmt.Errorf("longer than maxLength %d", *rules.MaxLength)
			}
			if rules.Pattern != "" {
				re, err := regexp.Compile(rules.Pattern)
				if err != nil {
					return fmt.Errorf("pattern rule: %v", err)
				}
				if !re.MatchString(raw) {
					return fmt.Errorf("does not match pattern %q", rules.Pattern)
				}
			}
		}
	case models.TypeInteger:
		n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return fmt.Errorf("%q is not an integer", raw)
		}
		if err := checkRange(float64(n), rules); err != nil {
			return err
		}
	case models.TypeDecimal:
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return fmt.Errorf("%q is not a decimal number", raw)
		}
		if err := checkRange(f, rules); err != nil {
			return err
		}
	case models.TypeDate:
		if _, err := time.Parse(dateLayout, raw); err != nil {
			return fmt.Errorf("%q is not a date (%s)", raw, dateLayout)
		}
	case models.TypeDateTime:
		if _, err := time.Parse(time.RFC3339, raw); err != nil {
			return fmt.Errorf("%q is not an RFC 3339 datetime", raw)
		}
	case models.TypeBoolean:
		switch strings.ToLower(strings.TrimSpace(raw)) {
		case "true", "false", "yes", "no", "1", "0":
		default:
			return fmt.Errorf("%q is not a boolean token", raw)
		}
	case models.TypeSingleChoice:
		if !isChoice(raw, rules) {
			return fmt.Errorf("%q is not an allowed choice", raw)
		}
	case models.TypeMultipleChoice:
		parts := strings.Split(raw, ",")
		if raw == "" {
			return fmt.Errorf("empty choice set")
		}
		for _, p := range parts {
			if !isChoice(strings.TrimSpace(p), rules) {
				return fmt.Errorf("%q is not an allowed choice", strings.TrimSpace(p))
			}
		}
	case models.TypeURL:
		u, err := url.ParseRequestURI(raw)
		if err != nil || u.Scheme == "" {
			return fmt.Errorf("%q is not an absolute URL", raw)
		}
	case models.TypeFileReference:
		if strings.TrimSpace(raw) == "" {
			return fmt.Errorf("empty file reference")
		}
	default:
		return fmt.Errorf("unknown attribute type %q", def.Type)
	}
	return nil
}

func checkRange(v float64, rules *models.AttributeRules) error {
	if rules == nil {
		return nil
	}
	if rules.Min != nil && v < *rules.Min {
		return fmt.Errorf("%v is below min %v", v, *rules.Min)
	}
	if rules.Max != nil && v > *rules.Max {
		return fmt.Errorf("%v is above max %v", v, *rules.Max)
	}
	return nil
}

func isChoice(v string, rules *models.AttributeRules) bool {
	if rules == nil {
		return false
	}
	for _, c := range rules.Choices {
		if c == v {
			return true
		}
	}
	return false
}

// checkEntity resolves the target of an attribute value or required-check.
func (db *DB) checkEntity(kind models.EntityKind, entityID int64) error {
	switch kind {
	case models.KindTask:
		_, err := db.GetTask(entityID)
		return err
	case models.KindList:
		_, err := db.GetList(entityID)
		return err
	}
	return validationf("unknown entity kind %q", kind)
}

// SetAttributeValue validates raw against the definition's type and
// upserts it. An existing value is overwritten in place, keeping its
// original creation timestamp.
func (db *DB) SetAttributeValue(kind models.EntityKind, entityID, definitionID int64, raw string) (*models.AttributeValue, error) {
	def, err := db.GetAttributeDefinition(definitionID)
	if err != nil {
		return nil, err
	}
	if err := db.checkEntity(kind, entityID); err != nil {
		return nil, err
	}
	if err := checkValue(def, raw); err != nil {
		return nil, validationf("attribute %q: %v", def.Name, err)
	}

	_, err = db.Exec(`
		INSERT INTO attribute_values (entity_kind, entity_id, definition_id, value)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(entity_kind, entity_id, definition_id)
		DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, string(kind), entityID, definitionID, raw)
	if err != nil {
		return nil, storef("set attribute value: %v", err)
	}

	return db.getAttributeValue(kind, entityID, definitionID)
}

func (db *DB) getAttributeValue(kind models.EntityKind, entityID, definitionID int64) (*models.AttributeValue, error) {
	v := &models.AttributeValue{EntityKind: kind, EntityID: entityID, DefinitionID: definitionID}
	err := db.QueryRow(`
		SELECT value, created_at, updated_at FROM attribute_values
		WHERE entity_kind = ? AND entity_id = ? AND definition_id = ?
	`, string(kind), entityID, definitionID).Scan(&v.Value, &v.CreatedAt, &v.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, notFoundf("attribute value for %s %d definition %d", kind, entityID, definitionID)
	}
	if err != nil {
		return nil, storef("get attribute value: %v", err)
	}
	return v, nil
}

// RemoveAttributeValue deletes one value. False if none existed.
func (db *DB) RemoveAttributeValue(kind models.EntityKind, entityID, definitionID int64) (bool, error) {
	result, err := db.Exec(`
		DELETE FROM attribute_values
		WHERE entity_kind = ? AND entity_id = ? AND definition_id = ?
	`, string(kind), entityID, definitionID)
	if err != nil {
		return false, storef("remove attribute value: %v", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, storef("remove attribute value: %v", err)
	}
	return n > 0, nil
}

// GetAttributeValues returns every value attached to an entity, ordered
// by definition id.
func (db *DB) GetAttributeValues(kind models.EntityKind, entityID int64) ([]models.AttributeValue, error) {
	rows, err := db.Query(`
		SELECT definition_id, value, created_at, updated_at FROM attribute_values
		WHERE entity_kind = ? AND entity_id = ?
		ORDER BY definition_id
	`, string(kind), entityID)
	if err != nil {
		return nil, storef("attribute values of %s %d: %v", kind, entityID, err)
	}
	defer rows.Close()

	var values []models.AttributeValue
	for rows.Next() {
		v := models.AttributeValue{EntityKind: kind, EntityID: entityID}
		if err := rows.Scan(&v.DefinitionID, &v.Value, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, storef("scan attribute value: %v", err)
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// ValidateRequired reports the names of required attributes the entity
// has no value for. Required-ness is advisory metadata: nothing blocks a
// task or list mutation on a missing required attribute. This check runs
// only when a caller explicitly asks for it, never implicitly.
func (db *DB) ValidateRequired(kind models.EntityKind, entityID int64) ([]string, error) {
	if err := db.checkEntity(kind, entityID); err != nil {
		return nil, err
	}
	rows, err := db.Query(`
		SELECT d.name FROM attribute_definitions d
		WHERE d.is_required = 1 AND NOT EXISTS (
			SELECT 1 FROM attribute_values v
			WHERE v.definition_id = d.id AND v.entity_kind = ? AND v.entity_id = ?
		)
		ORDER BY d.name
	`, string(kind), entityID)
	if err != nil {
		return nil, storef("validate required attributes: %v", err)
	}
	defer rows.Close()

	var missing []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, storef("scan attribute name: %v", err)
		}
		missing = append(missing, name)
	}
	return missing, rows.Err()
}
