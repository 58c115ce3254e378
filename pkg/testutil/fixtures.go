package testutil

import (
	"time"

	"github.com/google/uuid"
)

// Fixed identifiers and instants for deterministic tests.
var (
	TestRunID    = uuid.MustParse("00000000-0000-0000-0000-000000000001")
	TestRunID2   = uuid.MustParse("00000000-0000-0000-0000-000000000002")
	TestTrainAt  = time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)
	TestVersion  = "20240315_093000_00000000"
	TestVersion2 = "20240316_093000_00000000"
)
