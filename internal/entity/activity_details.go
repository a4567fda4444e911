package entity

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Action string

const (
	ActionCreateGoal                Action = "CREATE_GOAL"
	ActionUpdateGoal                Action = "UPDATE_GOAL"
	ActionUpdateGoalProgress        Action = "UPDATE_GOAL_PROGRESS"
	ActionUpdateGoalStatus          Action = "UPDATE_GOAL_STATUS"
	ActionBulkUpdateGoals           Action = "BULK_UPDATE_GOALS"
	ActionDeleteGoal                Action = "DELETE_GOAL"
	ActionMarkGoalOverdue           Action = "MARK_GOAL_OVERDUE"
	ActionCreateGoalFromTemplate    Action = "CREATE_GOAL_FROM_TEMPLATE"
	ActionCreateUser                Action = "CREATE_USER"
	ActionUpdateUser                Action = "UPDATE_USER"
	ActionDeleteUser                Action = "DELETE_USER"
	ActionUpdateSetting             Action = "UPDATE_SETTING"
	ActionCreateTemplate            Action = "CREATE_TEMPLATE"
	ActionCreateProgressHistory     Action = "CREATE_PROGRESS_HISTORY"
	ActionDeleteProgressHistory     Action = "DELETE_PROGRESS_HISTORY"
	ActionWeeklyProcessingCompleted Action = "WEEKLY_PROCESSING_COMPLETED"
	ActionLogin                     Action = "LOGIN"
)

// ActivityDetails is the payload of an activity log. Every action has exactly
// one payload type.
type ActivityDetails interface {
	Action() Action
}

type GoalCreatedDetails struct {
	Title       string       `json:"title"`
	VolunteerID uuid.UUID    `json:"volunteer_id"`
	Priority    GoalPriority `json:"priority"`
	DueDate     time.Time    `json:"due_date"`
}

func (GoalCreatedDetails) Action() Action { return ActionCreateGoal }

type GoalUpdatedDetails struct {
	Fields         []string    `json:"fields"`
	PreviousStatus *GoalStatus `json:"previous_status,omitempty"`
	NewStatus      *GoalStatus `json:"new_status,omitempty"`
}

func (GoalUpdatedDetails) Action() Action { return ActionUpdateGoal }

type GoalProgressDetails struct {
	PreviousProgress int        `json:"previous_progress"`
	NewProgress      int        `json:"new_progress"`
	PreviousStatus   GoalStatus `json:"previous_status"`
	NewStatus        GoalStatus `json:"new_status"`
	Note             string     `json:"note,omitempty"`
}

func (GoalProgressDetails) Action() Action { return ActionUpdateGoalProgress }

type GoalStatusDetails struct {
	PreviousStatus   GoalStatus `json:"previous_status"`
	NewStatus        GoalStatus `json:"new_status"`
	PreviousProgress int        `json:"previous_progress"`
	NewProgress      int        `json:"new_progress"`
}

func (GoalStatusDetails) Action() Action { return ActionUpdateGoalStatus }

type GoalsBulkUpdatedDetails struct {
	GoalIDs  []uuid.UUID   `json:"goal_ids"`
	Status   *GoalStatus   `json:"status,omitempty"`
	Priority *GoalPriority `json:"priority,omitempty"`
}

func (GoalsBulkUpdatedDetails) Action() Action { return ActionBulkUpdateGoals }

type GoalDeletedDetails struct {
	Title       string    `json:"title"`
	VolunteerID uuid.UUID `json:"volunteer_id"`
}

func (GoalDeletedDetails) Action() Action { return ActionDeleteGoal }

type GoalOverdueDetails struct {
	Title          string     `json:"title"`
	DueDate        time.Time  `json:"due_date"`
	PreviousStatus GoalStatus `json:"previous_status"`
}

func (GoalOverdueDetails) Action() Action { return ActionMarkGoalOverdue }

type GoalFromTemplateDetails struct {
	TemplateID   uuid.UUID `json:"template_id"`
	TemplateName string    `json:"template_name"`
	Title        string    `json:"title"`
}

func (GoalFromTemplateDetails) Action() Action { return ActionCreateGoalFromTemplate }

type UserCreatedDetails struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (UserCreatedDetails) Action() Action { return ActionCreateUser }

type UserUpdatedDetails struct {
	Fields []string `json:"fields"`
}

func (UserUpdatedDetails) Action() Action { return ActionUpdateUser }

type UserDeletedDetails struct {
	Email string `json:"email"`
}

func (UserDeletedDetails) Action() Action { return ActionDeleteUser }

type SettingChangedDetails struct {
	Key       string       `json:"key"`
	Scope     SettingScope `json:"scope"`
	Operation string       `json:"operation"`
}

func (SettingChangedDetails) Action() Action { return ActionUpdateSetting }

type TemplateCreatedDetails struct {
	Name string `json:"name"`
}

func (TemplateCreatedDetails) Action() Action { return ActionCreateTemplate }

type ProgressHistoryDetails struct {
	GoalID    uuid.UUID `json:"goal_id"`
	WeekStart time.Time `json:"week_start"`
	Deleted   bool      `json:"deleted,omitempty"`
}

func (d ProgressHistoryDetails) Action() Action {
	if d.Deleted {
		return ActionDeleteProgressHistory
	}
	return ActionCreateProgressHistory
}

type WeeklyProcessingDetails struct {
	WeekStart        time.Time `json:"week_start"`
	WeekEnd          time.Time `json:"week_end"`
	GoalsProcessed   int       `json:"goals_processed"`
	GoalsCompleted   int       `json:"goals_completed"`
	GoalsOverdue     int       `json:"goals_overdue"`
	SnapshotsCreated int       `json:"snapshots_created"`
	Failures         int       `json:"failures"`
}

func (WeeklyProcessingDetails) Action() Action { return ActionWeeklyProcessingCompleted }

type LoginDetails struct {
	Email string `json:"email"`
}

func (LoginDetails) Action() Action { return ActionLogin }

// DecodeActivityDetails turns a stored payload back into its typed form.
func DecodeActivityDetails(action Action, raw []byte) (ActivityDetails, error) {
	var target ActivityDetails
	switch action {
	case ActionCreateGoal:
		target = &GoalCreatedDetails{}
	case ActionUpdateGoal:
		target = &GoalUpdatedDetails{}
	case ActionUpdateGoalProgress:
		target = &GoalProgressDetails{}
	case ActionUpdateGoalStatus:
		target = &GoalStatusDetails{}
	case ActionBulkUpdateGoals:
		target = &GoalsBulkUpdatedDetails{}
	case ActionDeleteGoal:
		target = &GoalDeletedDetails{}
	case ActionMarkGoalOverdue:
		target = &GoalOverdueDetails{}
	case ActionCreateGoalFromTemplate:
		target = &GoalFromTemplateDetails{}
	case ActionCreateUser:
		target = &UserCreatedDetails{}
	case ActionUpdateUser:
		target = &UserUpdatedDetails{}
	case ActionDeleteUser:
		target = &UserDeletedDetails{}
	case ActionUpdateSetting:
		target = &SettingChangedDetails{}
	case ActionCreateTemplate:
		target = &TemplateCreatedDetails{}
	case ActionCreateProgressHistory:
		target = &ProgressHistoryDetails{}
	case ActionDeleteProgressHistory:
		target = &ProgressHistoryDetails{Deleted: true}
	case ActionWeeklyProcessingCompleted:
		target = &WeeklyProcessingDetails{}
	case ActionLogin:
		target = &LoginDetails{}
	default:
		return nil, fmt.Errorf("unknown activity action %q", action)
	}

	if len(raw) > 0 {
		if err := json.Unmarshal(raw, target); err != nil {
			return nil, fmt.Errorf("decode %s details: %w", action, err)
		}
	}
	return target, nil
}
