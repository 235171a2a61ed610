// Package script reads and writes compositor scripts.
//
// A script declares compositors as nested blocks:
//
//	compositor Bloom
//	{
//		technique
//		{
//			texture rt0 target_width_scaled 0.25 target_height_scaled 0.25 PF_R8G8B8A8 pooled
//			target rt0
//			{
//				input previous
//			}
//			target_output
//			{
//				input none
//				pass render_quad
//				{
//					material Blur
//					input 0 rt0
//				}
//			}
//		}
//	}
//
// Parse registers each compositor with a compositor.Manager through the
// same accessors a program would use. Serialize writes compositors back
// as text that parses to the same structures.
package script
