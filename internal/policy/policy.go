// Package policy is the single place where task-level authorization rules
// live. Handlers and services ask Can instead of re-checking roles inline so
// the rules for editing, status changes and attachments cannot drift apart.
package policy

import "github.com/taskflowhq/taskflow-api/internal/models"

type Action string

const (
	// ActionEditTask covers partial field updates of a task.
	ActionEditTask Action = "task:edit"
	// ActionChangeStatus covers moving a task across the board.
	ActionChangeStatus Action = "task:change_status"
	// ActionAddAttachment covers attaching files to a task.
	ActionAddAttachment Action = "task:add_attachment"
	// ActionDeleteTask covers deleting a task.
	ActionDeleteTask Action = "task:delete"
)

// Can reports whether actor may perform action on task.
//
// Admins may do everything. Editing and deleting is otherwise reserved for
// the creator, status changes for the current assignee, and attachments for
// either. Commenting is open to any authenticated user and never reaches
// this function.
func Can(actor *models.User, task *models.Task, action Action) bool {
	if actor == nil || task == nil {
		return false
	}
	if actor.Role == models.RoleAdmin {
		return true
	}

	switch action {
	case ActionEditTask, ActionDeleteTask:
		return task.CreatedByID == actor.ID
	case ActionChangeStatus:
		return task.AssignedToID == actor.ID
	case ActionAddAttachment:
		return task.AssignedToID == actor.ID || task.CreatedByID == actor.ID
	}

	return false
}
