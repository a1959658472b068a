package jirastore

// rawIssue mirrors the slice of Jira's issue payload that gets projected.
type rawIssue struct {
	ID     string `json:"id"`
	Key    string `json:"key"`
	Fields struct {
		Summary     string `json:"summary"`
		Description string `json:"description"`
		Status      struct {
			Name string `json:"name"`
		} `json:"status"`
		IssueType struct {
			Name string `json:"name"`
		} `json:"issuetype"`
		Project struct {
			Key string `json:"key"`
		} `json:"project"`
	} `json:"fields"`
}

type createResponse struct {
	ID  string `json:"id"`
	Key string `json:"key"`
}

type searchResponse struct {
	StartAt int        `json:"startAt"`
	Total   int        `json:"total"`
	Issues  []rawIssue `json:"issues"`
}

// buildCreatePayload assembles the Jira fields map. Named fields go first,
// extras are merged last so callers can override any of them.
func buildCreatePayload(req CreateIssueRequest) map[string]any {
	issueType := req.IssueType
	if issueType == "" {
		issueType = "Task"
	}

	fields := map[string]any{
		"project":   map[string]any{"key": req.ProjectKey},
		"issuetype": map[string]any{"name": issueType},
		"summary":   req.Summary,
	}
	if req.Description != "" {
		fields["description"] = req.Description
	}
	for name, value := range req.Fields {
		fields[name] = value
	}

	return map[string]any{"fields": fields}
}

func projectIssue(raw rawIssue, browse func(string) string) Issue {
	return Issue{
		Key:         raw.Key,
		ID:          raw.ID,
		URL:         browse(raw.Key),
		Summary:     raw.Fields.Summary,
		Description: raw.Fields.Description,
		Status:      raw.Fields.Status.Name,
		Type:        raw.Fields.IssueType.Name,
		Project:     raw.Fields.Project.Key,
	}
}
