package domain

// NominalNarrative is the static explanation served for cells below the
// narrative threshold. Wording is fixed; the dashboard matches on it.
const NominalNarrative = "Risk levels are currently within nominal baselines. Standard monitoring recommended."

// FallbackNarrative is the static explanation served when the generation
// service faults or is not configured. The fault never reaches the response.
const FallbackNarrative = "Automated analysis is temporarily unavailable. Refer to the listed risk drivers and citations for this cell."
