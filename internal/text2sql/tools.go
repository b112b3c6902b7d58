package text2sql

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/tools"
	"github.com/tmc/langchaingo/tools/sqldatabase"

	"github.com/querystudio/querystudio/internal/llm"
	"github.com/querystudio/querystudio/internal/prompts"
)

const (
	QueryToolName      = "sql_db_query"
	SchemaToolName     = "sql_db_schema"
	ListTablesToolName = "sql_db_list_tables"
	CheckerToolName    = "sql_db_query_checker"
)

// Tool errors are returned as observations so the agent can correct itself
// instead of aborting the run.
func errorObservation(err error) string {
	return "Error: " + err.Error()
}

type queryTool struct{ db *sqldatabase.SQLDatabase }

func (queryTool) Name() string { return QueryToolName }

func (queryTool) Description() string {
	return "Input to this tool is a detailed and correct SQL query, output is a result from the database. " +
		"If the query is not correct, an error message will be returned. " +
		"If an error is returned, rewrite the query, check the query, and try again. " +
		"If you encounter an issue with an unknown column, use " + SchemaToolName + " to query the correct table fields."
}

func (t queryTool) Call(ctx context.Context, input string) (string, error) {
	out, err := t.db.Query(ctx, cleanToolInput(input))
	if err != nil {
		return errorObservation(err), nil
	}
	return out, nil
}

type schemaTool struct{ db *sqldatabase.SQLDatabase }

func (schemaTool) Name() string { return SchemaToolName }

func (schemaTool) Description() string {
	return "Input to this tool is a comma-separated list of tables, output is the schema and sample rows for those tables. " +
		"Be sure that the tables actually exist by calling " + ListTablesToolName + " first! " +
		"Example Input: table1, table2, table3"
}

func (t schemaTool) Call(ctx context.Context, input string) (string, error) {
	var tables []string
	for _, table := range strings.Split(cleanToolInput(input), ",") {
		if table = strings.TrimSpace(table); table != "" {
			tables = append(tables, table)
		}
	}
	if len(tables) == 0 {
		return errorObservation(fmt.Errorf("no table names given")), nil
	}
	out, err := t.db.TableInfo(ctx, tables)
	if err != nil {
		return errorObservation(err), nil
	}
	return strings.TrimSpace(out), nil
}

type listTablesTool struct{ db *sqldatabase.SQLDatabase }

func (listTablesTool) Name() string { return ListTablesToolName }

func (listTablesTool) Description() string {
	return "Input is an empty string, output is a comma-separated list of tables in the database."
}

func (t listTablesTool) Call(context.Context, string) (string, error) {
	return strings.Join(t.db.TableNames(), ", "), nil
}

type queryCheckerTool struct {
	model       llm.ChatModel
	dialect     string
	temperature float64
}

func (queryCheckerTool) Name() string { return CheckerToolName }

func (queryCheckerTool) Description() string {
	return "Use this tool to double check if your query is correct before executing it. " +
		"Always use this tool before executing a query with " + QueryToolName + "!"
}

func (t queryCheckerTool) Call(ctx context.Context, input string) (string, error) {
	prompt, err := prompts.RenderQueryChecker(prompts.QueryCheckerInput{Dialect: t.dialect, Query: cleanToolInput(input)})
	if err != nil {
		return errorObservation(err), nil
	}
	out, err := llm.Complete(ctx, t.model, prompt, t.temperature)
	if err != nil {
		return "", fmt.Errorf("check query: %w", err)
	}
	return llm.StripCodeFence(out), nil
}

// Toolkit returns the SQL tools in the order they are listed to the agent.
// The table list is the one db cached when it was built.
func Toolkit(db *sqldatabase.SQLDatabase, model llm.ChatModel, temperature float64) []tools.Tool {
	return []tools.Tool{
		queryTool{db: db},
		schemaTool{db: db},
		listTablesTool{db: db},
		queryCheckerTool{model: model, dialect: db.Dialect(), temperature: temperature},
	}
}

func cleanToolInput(input string) string {
	input = strings.TrimSpace(input)
	input = strings.Trim(input, `"`)
	return llm.StripCodeFence(input)
}
