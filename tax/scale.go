package tax

// ResolveScale maps taxpayer declarations to exactly one scale.
// The decision order matters; the first matching rule wins:
//
//  1. No tax file number quoted
//  2. Foreign resident
//  3. Full Medicare exemption
//  4. Half Medicare exemption
//  5. Tax-free threshold claimed
//  6. Threshold not claimed
func ResolveScale(s Settings) Scale {
	switch {
	case !s.HasTaxFileNumber:
		return ScaleNoTFN
	case s.ForeignResident:
		return ScaleForeignResident
	case s.MedicareExemption == MedicareExemptionFull:
		return ScaleMedicareExemptFull
	case s.MedicareExemption == MedicareExemptionHalf:
		return ScaleMedicareExemptHalf
	case s.ClaimedTaxFreeThreshold:
		return ScaleThresholdClaimed
	default:
		return ScaleThresholdNotClaimed
	}
}
