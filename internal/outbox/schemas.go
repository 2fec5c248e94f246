package outbox

const activityCreatedSchema = `{
  "type": "object",
  "title": "ActivityCreated",
  "properties": {
    "activity_id": {"type": "string"},
    "user_id": {"type": "string"},
    "activity_type": {"type": "string"},
    "title": {"type": "string"},
    "metadata": {"type": "object"},
    "created_at": {"type": "string", "format": "date-time"}
  },
  "required": ["activity_id", "user_id", "activity_type", "title", "created_at"],
  "additionalProperties": false
}`
