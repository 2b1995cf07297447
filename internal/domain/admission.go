package domain

type Decision int

const (
	DecisionAdmit Decision = iota
	DecisionAlreadyActive
	DecisionFull
)

func (d Decision) String() string {
	switch d {
	case DecisionAdmit:
		return "admit"
	case DecisionAlreadyActive:
		return "already_active"
	case DecisionFull:
		return "full"
	}
	return "unknown"
}

// Admit решает, пускать ли участника. m == nil — участник ещё ни разу не
// заходил. Снимок session должен быть взят под блокировкой той же транзакции,
// что и последующая запись — иначе решение принимается по устаревшему счётчику.
func Admit(s *Session, m *Membership) Decision {
	if m != nil && m.IsActive {
		return DecisionAlreadyActive
	}
	if s.ParticipantCount >= s.MaxParticipants {
		return DecisionFull
	}
	return DecisionAdmit
}
