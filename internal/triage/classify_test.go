package triage

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"specter/internal/executor"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		report *executor.Report
		want   Class
	}{
		{
			name:   "pass",
			report: &executor.Report{ExitCode: 0},
			want:   ClassSuccess,
		},
		{
			name: "environment",
			report: &executor.Report{
				ExitCode: 1,
				Failure:  &executor.Failure{Kind: executor.KindEnvironment},
			},
			want: ClassEnvironment,
		},
		{
			name: "assertion",
			report: &executor.Report{
				ExitCode: 1,
				Failure:  &executor.Failure{Kind: executor.KindAssertion},
			},
			want: ClassAssertion,
		},
		{
			name: "timeout",
			report: &executor.Report{
				ExitCode: -1,
				Timeout:  true,
				Failure:  &executor.Failure{Kind: executor.KindInfrastructure},
			},
			want: ClassInfrastructure,
		},
		{
			name:   "failed without structured finding",
			report: &executor.Report{ExitCode: 2},
			want:   ClassInfrastructure,
		},
		{
			name:   "exit zero but timed out",
			report: &executor.Report{ExitCode: 0, Timeout: true},
			want:   ClassInfrastructure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.report))
		})
	}
}

func TestClassifyDeterministic(t *testing.T) {
	report := &executor.Report{
		ExitCode: 1,
		Failure:  &executor.Failure{Kind: executor.KindAssertion, Message: "assert 1 == 2"},
	}
	first := Classify(report)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Classify(report))
	}
}
