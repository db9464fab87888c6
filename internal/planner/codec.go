package planner

import (
	"encoding/json"
	"fmt"
)

type taskEnvelope struct {
	Kind Kind            `json:"kind"`
	Task json.RawMessage `json:"task"`
}

// MarshalTask encodes a task with its kind tag.
func MarshalTask(t Task) ([]byte, error) {
	body, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("marshal %s task: %w", t.Kind(), err)
	}
	return json.Marshal(taskEnvelope{Kind: t.Kind(), Task: body})
}

// UnmarshalTask decodes a task written by MarshalTask.
func UnmarshalTask(data []byte) (Task, error) {
	var env taskEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode task envelope: %w", err)
	}

	var (
		t   Task
		err error
	)
	switch env.Kind {
	case KindMerge:
		var v MergeTask
		err = json.Unmarshal(env.Task, &v)
		t = v
	case KindSplit:
		var v SplitTask
		err = json.Unmarshal(env.Task, &v)
		t = v
	case KindTransfer:
		var v TransferTask
		err = json.Unmarshal(env.Task, &v)
		t = v
	case KindObjectTransfer:
		var v ObjectTransferTask
		err = json.Unmarshal(env.Task, &v)
		t = v
	case KindDestroyZero:
		var v DestroyZeroTask
		err = json.Unmarshal(env.Task, &v)
		t = v
	default:
		return nil, fmt.Errorf("unknown task kind %q", env.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s task: %w", env.Kind, err)
	}
	return t, nil
}
