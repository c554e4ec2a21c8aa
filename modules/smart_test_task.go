package modules

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"tnctl/middleware"
	"tnctl/types"
)

// Disk name that stands for every disk in the system
const allDisks = "ALL"

type SmartTestParams struct {
	Name  string   `yaml:"name" validate:"required,notblank"`
	Test  *string  `yaml:"test" validate:"omitempty,oneof=long short conveyance offline LONG SHORT CONVEYANCE OFFLINE"`
	State string   `yaml:"state" validate:"oneof=present absent"`
	Disks []string `yaml:"disks" validate:"required,min=1,dive,notblank"`

	// The test schedule has no minute field; it is accepted and ignored
	Minute  *string `yaml:"minute"`
	Hour    *string `yaml:"hour"`
	Day     *string `yaml:"day"`
	Month   *string `yaml:"month"`
	Weekday *string `yaml:"weekday"`
}

func (p *SmartTestParams) check() error {
	if p.State == StatePresent && p.Hour == nil && p.Day == nil && p.Month == nil && p.Weekday == nil {
		return errors.New("one of hour, day, month or weekday is required")
	}
	return nil
}

var smartTestTaskModule = define(
	"smart_test_task",
	"Schedule S.M.A.R.T. disk tests",
	map[string]string{
		"discs": "disks",
		"date":  "day",
		"dom":   "day",
		"dow":   "weekday",
	},
	func() *SmartTestParams { return &SmartTestParams{State: StatePresent} },
	runSmartTestTask,
)

// diskIDs turns disk names like da0 into the identifiers smart.test wants
func diskIDs(ctx context.Context, mw middleware.Client, names []string) ([]string, error) {
	ids := make([]string, 0, len(names))

	for _, name := range names {
		id, err := mw.CallString(ctx, "disk.device_to_identifier", name)

		if err != nil {
			return nil, fmt.Errorf("can't look up disk %s: %w", name, err)
		}

		ids = append(ids, id)
	}

	return ids, nil
}

func runSmartTestTask(ctx context.Context, env *Env, p *SmartTestParams) (*types.Result, error) {
	res := types.NewResult()

	if p.Minute != nil {
		res.Warn("minute is ignored: S.M.A.R.T. tests are scheduled by the hour")
	}

	var testType *string
	if p.Test != nil {
		t := strings.ToUpper(*p.Test)
		testType = &t
	}

	all := slices.Contains(p.Disks, allDisks)

	task, err := queryOne[types.SmartTest](ctx, env.MW, "smart.test.query", middleware.Eq("desc", p.Name))

	if err != nil {
		return nil, fmt.Errorf("error looking up S.M.A.R.T. test %s: %w", p.Name, err)
	}

	switch {
	case task == nil && p.State == StateAbsent:
		return res, nil

	case task == nil:
		d := newDiff()
		d.Set("desc", p.Name)

		if all {
			d.Set("all_disks", true)
		} else {
			ids, err := diskIDs(ctx, env.MW, p.Disks)

			if err != nil {
				return nil, err
			}

			d.Set("disks", ids)
		}

		add(d, "type", testType)

		sched := newDiff()
		add(sched, "hour", p.Hour)
		add(sched, "dom", p.Day)
		add(sched, "month", p.Month)
		add(sched, "dow", p.Weekday)

		if !sched.Empty() {
			d.Set("schedule", sched)
		}

		res.Changed = true
		res.Set("invocation", d)

		if env.CheckMode {
			res.Msg = fmt.Sprintf("Would have created S.M.A.R.T. test %s with %s", p.Name, d)
			return res, nil
		}

		created, err := env.MW.Call(ctx, "smart.test.create", d)

		if err != nil {
			return nil, fmt.Errorf("error creating S.M.A.R.T. test %s: %w", p.Name, err)
		}

		res.Msg = fmt.Sprintf("Created S.M.A.R.T. test %s", p.Name)
		res.Set("task", created)

	case p.State == StateAbsent:
		res.Changed = true

		if env.CheckMode {
			res.Msg = fmt.Sprintf("Would have deleted S.M.A.R.T. test %s", p.Name)
			return res, nil
		}

		if _, err := env.MW.Call(ctx, "smart.test.delete", task.ID); err != nil {
			return nil, fmt.Errorf("error deleting S.M.A.R.T. test %s: %w", p.Name, err)
		}

		res.Msg = fmt.Sprintf("Deleted S.M.A.R.T. test %s", p.Name)

	default:
		d := newDiff()

		switch {
		case all:
			if !task.AllDisks {
				d.Set("all_disks", true)
				d.Set("disks", []string{})
			}
		default:
			ids, err := diskIDs(ctx, env.MW, p.Disks)

			if err != nil {
				return nil, err
			}

			if task.AllDisks || !sameSet(ids, task.Disks) {
				d.Set("all_disks", false)
				d.Set("disks", ids)
			}
		}

		update(d, "type", testType, task.Type)

		sched := newDiff()
		update(sched, "hour", p.Hour, task.Schedule.Hour)
		update(sched, "dom", p.Day, task.Schedule.Dom)
		update(sched, "month", p.Month, task.Schedule.Month)
		update(sched, "dow", p.Weekday, task.Schedule.Dow)

		if !sched.Empty() {
			d.Set("schedule", sched)
		}

		if d.Empty() {
			return res, nil
		}

		res.Changed = true
		res.Set("invocation", d)

		if env.CheckMode {
			res.Msg = fmt.Sprintf("Would have updated S.M.A.R.T. test %s: %s", p.Name, d)
			return res, nil
		}

		if _, err := env.MW.Call(ctx, "smart.test.update", task.ID, d); err != nil {
			return nil, fmt.Errorf("error updating S.M.A.R.T. test %s with %s: %w", p.Name, d, err)
		}

		res.Msg = fmt.Sprintf("Updated S.M.A.R.T. test %s", p.Name)
	}

	return res, nil
}
