package jira

// Issue is one ticket as returned by the Jira REST API. Fields is kept
// as a raw map because most of the interesting fields are
// deployment-specific custom field ids; typed accessors below cover the
// well-known ones.
type Issue struct {
	ID     string `json:"id"`
	Key    string `json:"key"`
	Fields Fields `json:"fields"`
}

// Fields is the dynamic field set of an issue.
type Fields map[string]interface{}

// LinkedIssue is the stub Jira embeds for the far side of an issue link.
// Search results carry only id/key/summary for it; full detail needs a
// second fetch.
type LinkedIssue struct {
	ID  string
	Key string
}

// Summary returns the issue summary, or "" when absent.
func (f Fields) Summary() string {
	s, _ := f["summary"].(string)
	return s
}

// AssigneeDisplayName returns the assignee's display name, or "" when
// the issue is unassigned.
func (f Fields) AssigneeDisplayName() string {
	assignee, ok := f["assignee"].(map[string]interface{})
	if !ok {
		return ""
	}
	name, _ := assignee["displayName"].(string)
	return name
}

// FirstOutwardLink returns the outward issue of the first entry in the
// issuelinks field, or nil when the issue has no links or the first
// link has no outward side. Only the first link is consulted anywhere
// in Switchman; see sync.Backfill.
func (f Fields) FirstOutwardLink() *LinkedIssue {
	links, ok := f["issuelinks"].([]interface{})
	if !ok || len(links) == 0 {
		return nil
	}
	first, ok := links[0].(map[string]interface{})
	if !ok {
		return nil
	}
	outward, ok := first["outwardIssue"].(map[string]interface{})
	if !ok {
		return nil
	}
	li := &LinkedIssue{}
	li.ID, _ = outward["id"].(string)
	li.Key, _ = outward["key"].(string)
	if li.ID == "" && li.Key == "" {
		return nil
	}
	return li
}

// StringField returns the value of the named field as a string. Plain
// strings come back as-is; single-select option objects yield their
// "value"; anything else (absent, null, arrays) yields "".
func (f Fields) StringField(id string) string {
	switch v := f[id].(type) {
	case string:
		return v
	case map[string]interface{}:
		s, _ := v["value"].(string)
		return s
	default:
		return ""
	}
}

// Empty reports whether the named field is absent, null, or an empty
// string. This is the "only write if empty" guard used by the backfill
// workflows.
func (f Fields) Empty(id string) bool {
	v, ok := f[id]
	if !ok || v == nil {
		return true
	}
	s, isStr := v.(string)
	return isStr && s == ""
}
