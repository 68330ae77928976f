// Package nn provides a capsule layer with dynamic routing-by-agreement.
//
// A capsule is a vector whose direction encodes the instantiation parameters
// of an entity and whose length encodes the probability that it is present.
// The layer maps lower capsules (batch, P, D_p) to upper capsules
// (batch, C, D_c):
//   - Predict: û[b,p,c] = W[p,c] · u[b,p] for every (lower, upper) pair
//   - Route: logits start at zero; each iteration takes softmax over C,
//     sums the weighted predictions, squashes them, and adds the
//     prediction/consensus dot product back into the logits
//   - a final softmax/sum/squash pass on the updated logits gives the output
//
// Capsule lengths (SafeNorm) are class probabilities, trained with
// MarginLoss and scored with Accuracy.
//
// Example usage:
//
//	layer, _ := nn.NewCapsuleLayer(nn.DefaultCapsuleConfig())
//	_ = layer.Configure(1152, 8, rand.New(rand.NewSource(42)))
//
//	upper, _ := layer.Forward(lower) // (batch, 10, 16)
//	probs, _ := nn.ClassProbabilities(upper)
//	loss, _ := nn.MarginLoss(target, probs, nn.DefaultMarginConfig())
package nn
