package server

import (
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/switchman/internal/jira"
	"github.com/zulandar/switchman/internal/sync"
)

// registerRoutes sets up all API routes on the Gin router.
func registerRoutes(router *gin.Engine, opts StartOpts) {
	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "Welcome to the Switchman ticket automation API. Use /api/tickets to get the tickets.")
	})

	api := router.Group("/api/tickets")
	api.GET("", handleSearch(opts))

	// The five bulk field-update routes differ only in which field they
	// touch; one handler, parameterized by field id, serves them all.
	api.PUT("/updateComponents", handleFieldUpdate(opts, "components", "Components"))
	api.PUT("/updateTargetRelease", handleFieldUpdate(opts, opts.Fields.TargetRelease, opts.Fields.TargetRelease))
	api.PUT("/updateTargetVersion", handleFieldUpdate(opts, opts.Fields.TargetVersion, opts.Fields.TargetVersion))
	api.PUT("/updateSRnumber", handleFieldUpdate(opts, opts.Fields.SRNumber, opts.Fields.SRNumber))
	api.PUT("/updateSalesForceCR", handleFieldUpdate(opts, opts.Fields.SalesForceCR, opts.Fields.SalesForceCR))

	api.POST("/comments", handleBulkComment(opts))

	api.POST("/sync-sr-cr-numbers", handleBackfill(opts, sync.WorkflowSyncSRCR,
		"SR Number and CR Number (SalesForce CR) updated successfully!",
		"Error syncing SR Number and CR Number (SalesForce CR)"))
	api.POST("/update-customer-info", handleBackfill(opts, sync.WorkflowUpdateCustomerInfo,
		"Customer Information (LS Customer) updated successfully!",
		"Error updating Customer Information (LS Customer)"))

	api.PUT("/comment-for-missing-primary-component", handleCommentBot(opts, sync.WorkflowMissingComponent))
	api.PUT("/comment-for-cloned-defects-still-defects", handleCommentBot(opts, sync.WorkflowClonedStillDefects))

	// All log routes serve the one shared run log.
	for _, p := range []string{
		"/sync-sr-cr-numbers/logs",
		"/update-customer-info/logs",
		"/comment-for-missing-primary-component/logs",
		"/comment-for-cloned-defects-still-defects/logs",
	} {
		api.GET(p, handleLogs(opts))
	}
}

// requireJQL extracts the mandatory jql query parameter. A missing
// query is a client error, never a silent default.
func requireJQL(c *gin.Context) (string, bool) {
	jql := c.Query("jql")
	if jql == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "JQL query is required"})
		return "", false
	}
	return jql, true
}

// pageSize returns the page size for a request, honoring the optional
// maxResults override.
func pageSize(c *gin.Context, opts StartOpts) int {
	if v := c.Query("maxResults"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return opts.PageSize
}

// fetchTickets runs the paged search shared by the non-workflow routes.
func fetchTickets(c *gin.Context, opts StartOpts) ([]jira.Issue, bool) {
	jql, ok := requireJQL(c)
	if !ok {
		return nil, false
	}
	issues, err := opts.Client.Search(c.Request.Context(), jql, pageSize(c, opts), opts.MaxIssues)
	if err != nil {
		log.Printf("server: search: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil, false
	}
	return issues, true
}

func handleSearch(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		issues, ok := fetchTickets(c, opts)
		if !ok {
			return
		}
		if issues == nil {
			issues = []jira.Issue{}
		}
		c.JSON(http.StatusOK, issues)
	}
}

// handleFieldUpdate applies one field value from the request body to
// every ticket matching the query. Per-ticket failures are logged and
// the batch continues; partial success is expected and acceptable.
func handleFieldUpdate(opts StartOpts, fieldID, label string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body map[string]interface{}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "request body must be a JSON object"})
			return
		}
		value, ok := body[fieldID]
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("%s is required in the request body", fieldID)})
			return
		}

		issues, ok := fetchTickets(c, opts)
		if !ok {
			return
		}

		for _, issue := range issues {
			err := opts.Client.UpdateFields(c.Request.Context(), issue.Key, map[string]interface{}{
				fieldID: value,
			})
			if err != nil {
				log.Printf("server: update %s on %s: %v", fieldID, issue.Key, err)
				continue
			}
			log.Printf("server: %s updated for %s", fieldID, issue.Key)
		}

		c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("%s updated for all tickets successfully.", label)})
	}
}

// handleBulkComment posts one comment body on every matching ticket.
func handleBulkComment(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body struct {
			Body string `json:"body"`
		}
		if err := c.ShouldBindJSON(&body); err != nil || body.Body == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "body is required in the request body"})
			return
		}

		issues, ok := fetchTickets(c, opts)
		if !ok {
			return
		}

		for _, issue := range issues {
			if err := opts.Client.AddComment(c.Request.Context(), issue.Key, body.Body); err != nil {
				log.Printf("server: comment on %s: %v", issue.Key, err)
				continue
			}
			log.Printf("server: comment added to %s", issue.Key)
		}

		c.JSON(http.StatusOK, gin.H{"message": "Comments added to all tickets successfully."})
	}
}

// handleBackfill triggers a backfill workflow. The run log is the
// primary artifact of these runs, so any run failure (including a log
// append failure) is a 500 with no partial block persisted.
func handleBackfill(opts StartOpts, workflow, okMsg, errMsg string) gin.HandlerFunc {
	return func(c *gin.Context) {
		jql, ok := requireJQL(c)
		if !ok {
			return
		}
		summary, err := opts.Registry[workflow].Run(c.Request.Context(), jql)
		if err != nil {
			log.Printf("server: %s: %v", workflow, err)
			c.String(http.StatusInternalServerError, errMsg)
			return
		}
		if summary.Tickets == 0 {
			c.JSON(http.StatusOK, gin.H{"message": "There are no fetched tickets."})
			return
		}
		c.String(http.StatusOK, okMsg)
	}
}

// handleCommentBot triggers a templated-comment workflow.
func handleCommentBot(opts StartOpts, workflow string) gin.HandlerFunc {
	return func(c *gin.Context) {
		jql, ok := requireJQL(c)
		if !ok {
			return
		}
		summary, err := opts.Registry[workflow].Run(c.Request.Context(), jql)
		if err != nil {
			log.Printf("server: %s: %v", workflow, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if summary.Tickets == 0 {
			c.JSON(http.StatusOK, gin.H{"message": "There are no fetched tickets."})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Comments added to all tickets successfully."})
	}
}

// handleLogs serves the shared run log verbatim.
func handleLogs(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		text, err := opts.Sink.ReadAll()
		if err != nil {
			log.Printf("server: read run log: %v", err)
			c.String(http.StatusInternalServerError, "Error reading log file")
			return
		}
		c.String(http.StatusOK, text)
	}
}
