package temporal

// ============================================================================
// Arithmetic Dispatch
//
// The left operand's dtype selects the rule set. Duration rules strip the
// tag, run the physical kernel on Int64 (Float64 for ratios and float
// scalars) and re-tag the result. Plain numeric operands go straight to the
// physical kernels after promotion to a common type.
// ============================================================================

// Subtract returns s - rhs.
func (s *Series) Subtract(rhs *Series) (*Series, error) {
	switch s.dtype.kind {
	case Duration:
		return durationSub(s, rhs)
	default:
		return numericArith(opSub, s, rhs)
	}
}

// Add returns s + rhs.
func (s *Series) Add(rhs *Series) (*Series, error) {
	switch s.dtype.kind {
	case Duration:
		return durationAdd(s, rhs)
	default:
		return numericArith(opAdd, s, rhs)
	}
}

// Multiply returns s * rhs.
func (s *Series) Multiply(rhs *Series) (*Series, error) {
	switch s.dtype.kind {
	case Duration:
		return durationScale(opMul, s, rhs)
	default:
		return numericArith(opMul, s, rhs)
	}
}

// Divide returns s / rhs. A duration divided by a duration is a Float64
// ratio.
func (s *Series) Divide(rhs *Series) (*Series, error) {
	switch s.dtype.kind {
	case Duration:
		return durationDiv(s, rhs)
	default:
		return numericArith(opDiv, s, rhs)
	}
}

// Remainder returns s % rhs. A zero divisor yields null.
func (s *Series) Remainder(rhs *Series) (*Series, error) {
	switch s.dtype.kind {
	case Duration:
		return durationRem(s, rhs)
	default:
		return numericArith(opRem, s, rhs)
	}
}

func durationSub(lhs, rhs *Series) (*Series, error) {
	if rhs.dtype.kind != Duration {
		return nil, unsupported(opSub.String(), lhs.dtype, rhs.dtype)
	}
	if lhs.dtype.unit != rhs.dtype.unit {
		return nil, unitMismatch(opSub.String(), lhs.dtype, rhs.dtype)
	}
	out, err := physicalOp(opSub, lhs, rhs)
	if err != nil {
		return nil, err
	}
	return out.into(lhs.dtype), nil
}

func durationAdd(lhs, rhs *Series) (*Series, error) {
	switch rhs.dtype.kind {
	case Duration:
		if lhs.dtype.unit != rhs.dtype.unit {
			return nil, unitMismatch(opAdd.String(), lhs.dtype, rhs.dtype)
		}
		out, err := physicalOp(opAdd, lhs, rhs)
		if err != nil {
			return nil, err
		}
		return out.into(lhs.dtype), nil

	case Date:
		// whole days only; the sub-day remainder is dropped
		days, err := lhs.physical().scaleCounts(opDiv, lhs.dtype.unit.TicksPerDay())
		if err != nil {
			return nil, err
		}
		defer days.Release()
		dayNum := rhs.physical()
		defer dayNum.Release()
		base := mustCast(dayNum, Int64Type, CastOverflowing)
		defer base.Release()

		sum, err := physicalOp(opAdd, days, base)
		if err != nil {
			return nil, err
		}
		defer sum.Release()
		// days past the Date range become null
		out := mustCast(sum, Int32Type, CastNonStrict)
		return out.into(DateType), nil

	case Datetime:
		if lhs.dtype.unit != rhs.dtype.unit {
			return nil, unitMismatch(opAdd.String(), lhs.dtype, rhs.dtype)
		}
		out, err := physicalOp(opAdd, lhs, rhs)
		if err != nil {
			return nil, err
		}
		return out.into(rhs.dtype), nil

	default:
		return nil, unsupported(opAdd.String(), lhs.dtype, rhs.dtype)
	}
}

// durationScale multiplies or divides a duration by a plain number.
func durationScale(op arithOp, lhs, rhs *Series) (*Series, error) {
	switch {
	case rhs.dtype.IsInteger():
		factor := mustCast(rhs, Int64Type, CastOverflowing)
		defer factor.Release()
		out, err := physicalOp(op, lhs, factor)
		if err != nil {
			return nil, err
		}
		return out.into(lhs.dtype), nil

	case rhs.dtype.IsFloat():
		counts := mustCast(lhs, rhs.dtype, CastOverflowing)
		defer counts.Release()
		scaled, err := physicalOp(op, counts, rhs)
		if err != nil {
			return nil, err
		}
		defer scaled.Release()
		// truncate toward zero; NaN and out-of-range results become null
		out := mustCast(scaled, Int64Type, CastNonStrict)
		return out.into(lhs.dtype), nil

	default:
		return nil, unsupported(op.String(), lhs.dtype, rhs.dtype)
	}
}

func durationDiv(lhs, rhs *Series) (*Series, error) {
	if rhs.dtype.kind != Duration {
		return durationScale(opDiv, lhs, rhs)
	}
	if lhs.dtype.unit != rhs.dtype.unit {
		aligned, err := rhs.Cast(lhs.dtype, CastStrict)
		if err != nil {
			return nil, err
		}
		defer aligned.Release()
		return durationDiv(lhs, aligned)
	}

	l := mustCast(lhs, Float64Type, CastOverflowing)
	defer l.Release()
	r := mustCast(rhs, Float64Type, CastOverflowing)
	defer r.Release()
	return physicalOp(opDiv, l, r)
}

func durationRem(lhs, rhs *Series) (*Series, error) {
	if rhs.dtype.kind != Duration {
		return nil, unsupported(opRem.String(), lhs.dtype, rhs.dtype)
	}
	if !lhs.dtype.Equal(rhs.dtype) {
		return nil, unitMismatch(opRem.String(), lhs.dtype, rhs.dtype)
	}
	out, err := physicalOp(opRem, lhs, rhs)
	if err != nil {
		return nil, err
	}
	return out.into(lhs.dtype), nil
}

// physicalOp runs op on the physical arrays of two series whose physical
// types already agree. The result carries the physical dtype and the left
// operand's name.
func physicalOp(op arithOp, lhs, rhs *Series) (*Series, error) {
	arr, err := physArith(op, lhs.arr, rhs.arr)
	if err != nil {
		return nil, &OpError{Op: op.String(), Left: lhs.dtype, Right: rhs.dtype, Err: err}
	}
	return newSeries(lhs.name, lhs.dtype.ToPhysical(), arr), nil
}

// numericArith applies op to two plain numeric series after promoting both
// to a common physical type.
func numericArith(op arithOp, lhs, rhs *Series) (*Series, error) {
	common, ok := supertype(lhs.dtype, rhs.dtype)
	if !ok {
		return nil, unsupported(op.String(), lhs.dtype, rhs.dtype)
	}
	l := mustCast(lhs, common, CastOverflowing)
	defer l.Release()
	r := mustCast(rhs, common, CastOverflowing)
	defer r.Release()
	return physicalOp(op, l, r)
}

// supertype returns the dtype both plain numeric operands are promoted to.
func supertype(a, b DataType) (DataType, bool) {
	numeric := func(dt DataType) bool { return dt.IsNumeric() || dt.kind == Bool }
	if !numeric(a) || !numeric(b) {
		return DataType{}, false
	}
	switch {
	case a.kind == b.kind && a.kind != Bool:
		return a, true
	case a.IsFloat() || b.IsFloat():
		return Float64Type, true
	case (a.kind == UInt64 || a.kind == UInt32) && (b.kind == UInt64 || b.kind == UInt32):
		return UInt64Type, true
	default:
		return Int64Type, true
	}
}
