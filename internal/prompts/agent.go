package prompts

import (
	"fmt"
	"strings"
	"text/template"
)

type QueryCheckerInput struct {
	Dialect string
	Query   string
}

var queryCheckerTemplate = template.Must(template.New("query_checker").Parse(strings.TrimSpace(queryCheckerText)))

// ToolDescriptionsAction is the only template action allowed in the agent
// prefix. The agent fills it with one "- name: description" line per tool.
const ToolDescriptionsAction = "{{.tool_descriptions}}"

// SQLAgentPrefix opens the SQL agent's ReAct prompt and ends with the tool
// list. The agent parses it as a template, so it must not contain any other
// template action.
func SQLAgentPrefix(dialect, schema string, topK int) string {
	return fmt.Sprintf(sqlAgentPrefixText, dialect, topK, schema)
}

func RenderQueryChecker(in QueryCheckerInput) (string, error) {
	if strings.TrimSpace(in.Query) == "" {
		return "", fmt.Errorf("query is required")
	}
	return render(queryCheckerTemplate, in)
}

const sqlAgentPrefixText = `You are an agent designed to interact with a SQL database.
Given an input question, create a syntactically correct %s query to run, then look at the results of the query and return the answer.
Unless the user specifies a specific number of examples they wish to obtain, always limit your query to at most %d results.
You can order the results by a relevant column to return the most interesting examples in the database.
Never query for all the columns from a specific table, only ask for the relevant columns given the question.
All tables live in the %s schema; always qualify table names with it.
You have access to tools for interacting with the database.
Only use the below tools. Only use the information returned by the below tools to construct your final answer.
You MUST double check your query before executing it. If you get an error while executing a query, rewrite the query and try again.

DO NOT make any DML statements (INSERT, UPDATE, DELETE, DROP etc.) to the database.

If the question does not seem related to the database, just return "I don't know" as the answer.

You have access to the following tools:

` + ToolDescriptionsAction

const queryCheckerText = `
{{.Query}}
Double check the {{.Dialect}} query above for common mistakes, including:
- Using NOT IN with NULL values
- Using UNION when UNION ALL should have been used
- Using BETWEEN for exclusive ranges
- Data type mismatch in predicates
- Properly quoting identifiers
- Using the correct number of arguments for functions
- Casting to the correct data type
- Using the proper columns for joins

If there are any of the above mistakes, rewrite the query. If there are no mistakes, just reproduce the original query.

Output the final SQL query only.
`
