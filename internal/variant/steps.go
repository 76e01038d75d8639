package variant

// Step is one iteration of the generation loop.
type Step struct {
	Index    int `json:"index"`
	HueShift int `json:"hue_shift"`
}

// HueSamples returns count evenly spaced integer hue shifts from start to end
// inclusive. Intermediate values are rounded down, in either direction of
// travel, and the first and last samples always equal start and end. A count of one yields just start;
// a non-positive count yields nil.
func HueSamples(start, end, count int) []int {
	if count <= 0 {
		return nil
	}
	samples := make([]int, count)
	if count == 1 {
		samples[0] = start
		return samples
	}
	span := end - start
	for i := 0; i < count; i++ {
		samples[i] = start + floorDiv(span*i, count-1)
	}
	return samples
}

// floorDiv divides rounding toward negative infinity. d must be positive.
func floorDiv(n, d int) int {
	q := n / d
	if n%d != 0 && n < 0 {
		q--
	}
	return q
}

// PlanSteps pairs each hue sample with its index.
func PlanSteps(start, end, count int) []Step {
	samples := HueSamples(start, end, count)
	steps := make([]Step, len(samples))
	for i, shift := range samples {
		steps[i] = Step{Index: i, HueShift: shift}
	}
	return steps
}

// ScaleProgress maps a step index onto a progress bar whose full value is
// fullProgress. The last step lands just short of full; completion fills it.
func ScaleProgress(index, stepCount, fullProgress int) int {
	if stepCount <= 0 {
		return 0
	}
	if index < 0 {
		index = 0
	}
	if index >= stepCount {
		return fullProgress
	}
	return index * fullProgress / stepCount
}
