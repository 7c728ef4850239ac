package mcpserver

// DataFormatContract describes the exported document format that LLM
// consumers should follow when importing data or creating records.
const DataFormatContract = `# devspace Data Format Contract

An export is one JSON object with four collections and a metadata block.

## Structure

` + "```" + `json
{
  "projects":  [ { "id": "…", "name": "Site", "client": "Acme", "budget": 1200, "status": "Planning", "createdAt": "2024-07-04T12:00:00Z" } ],
  "tasks":     [ { "id": "…", "name": "Build", "projectId": "…", "status": "Todo", "priority": "High", "createdAt": "…" } ],
  "schedules": [ { "id": "…", "title": "Standup", "date": "2024-07-05", "startTime": "09:00", "endTime": "09:15", "projectId": null } ],
  "payments":  [ { "id": "…", "description": "Deposit", "amount": 250, "status": "Paid", "type": "Invoice", "projectId": "…" } ],
  "metadata":  { "version": "1.0.0", "createdAt": "…", "updatedAt": "…", "lastBackup": null }
}
` + "```" + `

## Rules

1. **All four collections are required** and must be arrays, even when empty.
   An import missing one of them is rejected and the current data is kept.
2. **projectId** links tasks, schedules and payments to a project. It may be
   null. Deleting a project deletes every record pointing at it.
3. **Statuses** are closed sets:
   - project: Planning, In Progress, On Hold, Completed, Cancelled
   - task: Todo, In Progress, Blocked, Done
   - payment: Pending, Paid, Overdue, Cancelled
4. **Task priority** is Low, Medium or High. **Payment type** is Invoice,
   Payment, Expense or Refund.
5. **completedAt** is set while a task is Done and **paidAt** while a payment
   is Paid. Both are maintained by the store; do not send them.
6. **Amounts** (budget, amount, estimatedHours) are numbers. Numeric strings
   are accepted; anything else reads as 0.
7. **Dates** use ISO-8601 (` + "`" + `2024-07-04` + "`" + ` or a full timestamp); clock times use HH:MM.
8. A missing **metadata** block is synthesised on import and older documents
   are migrated to the current version.
`
