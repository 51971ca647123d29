package llm

import "fmt"

const validPredictions = "Valid predictions: 1, 2, 5, 10, Pachinko, Cash Hunt, Coin Flip, Crazy Time"

func markovPrompt(r Request) string {
	return fmt.Sprintf(`You are an expert Crazy Time prediction AI using Markov chain analysis.

Recent 20 spins (newest first): %s
Frequency in last spins: %s

Analyze the pattern and predict the NEXT spin. Consider:
- Transition patterns (what follows what)
- Overdue results (haven't appeared recently)
- Hot streaks

Respond ONLY with valid JSON, no other text:
{"prediction":"1","confidence":82,"reason":"Short analysis","hot":"1","due":"5","cold":"Crazy Time"}

%s`, r.Recent, r.Frequency, validPredictions)
}

const gptSystem = "You are a Crazy Time prediction expert."

func gapPrompt(r Request) string {
	return fmt.Sprintf(`You are a Crazy Time prediction AI using frequency gap analysis.

Recent 20 spins: %s
Frequency counts: %s

Expected frequencies: 1=44%%, 2=27%%, 5=15%%, 10=8%%, bonuses=2%% each, CrazyTime=1%%

Predict next spin based on which result is most overdue vs expected frequency.

Respond ONLY with valid JSON:
{"prediction":"5","confidence":79,"reason":"Overdue analysis","hot":"1","due":"5","cold":"Crazy Time"}

%s`, r.Recent, r.Frequency, validPredictions)
}

func bayesPrompt(r Request) string {
	return fmt.Sprintf(`You are a Crazy Time AI using Bayesian multi-window analysis.

Recent spins: %s
Counts: %s

Apply Bayesian posterior combining prior probability + recent frequency across multiple windows.

Respond ONLY with valid JSON:
{"prediction":"2","confidence":76,"reason":"Bayesian analysis","hot":"1","due":"5","cold":"Crazy Time"}

%s`, r.Recent, r.Frequency, validPredictions)
}
