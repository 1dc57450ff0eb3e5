// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package diff_test

import (
	"fmt"

	"github.com/jeranaias/chatwidget/internal/diff"
)

func ExampleForEdit() {
	d := diff.ForEdit("What is 2+2?", "What is 3+3?")

	fmt.Println(d.Summary())
	fmt.Println(d.Inline())

	// Output:
	// +1 -1
	// What is [-2+2?-] {+3+3?+}
}
